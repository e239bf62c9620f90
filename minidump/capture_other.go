//go:build !linux && !darwin && !windows

package minidump

type unsupportedWriter struct{}

func newPlatformWriter(Config, *namer) Writer {
	return unsupportedWriter{}
}

func (unsupportedWriter) Capture() (string, []byte, error) {
	return "", nil, ErrUnsupported
}
