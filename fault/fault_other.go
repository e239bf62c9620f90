//go:build !unix

package fault

// Install is a no-op where there are no POSIX signals to translate.
func Install() error {
	return ErrUnsupported
}
