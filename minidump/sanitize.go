package minidump

import (
	"bytes"
	"regexp"
	"runtime"
	"strings"
)

// argList matches the trailing argument list of a frame line in a
// goroutine trace, e.g. "(0xc000010000, 0x2, {0x1, 0x3}, ...)".
var argList = regexp.MustCompile(`\((?:0x[0-9a-f]+\??|\.\.\.|[{}]|, ?)+\)$`)

// SanitizeStack strips argument values from goroutine traces as printed by
// runtime.Stack, leaving function names and file positions intact.
func SanitizeStack(stacks []byte) []byte {
	lines := bytes.Split(stacks, []byte("\n"))
	for i, line := range lines {
		if len(line) == 0 || line[0] == '\t' || bytes.HasPrefix(line, []byte("goroutine ")) {
			continue
		}
		lines[i] = argList.ReplaceAll(line, []byte("(...)"))
	}
	return bytes.Join(lines, []byte("\n"))
}

var sensitiveKeys = []string{
	"TOKEN", "KEY", "SECRET", "PASSWORD", "CREDENTIAL",
	"AUTH", "PRIVATE", "DSN",
}

// RedactEnviron redacts the values of sensitive variables in a
// NUL-separated KEY=VALUE block, as found in /proc/<pid>/environ.
func RedactEnviron(environ []byte) []byte {
	vars := bytes.Split(environ, []byte{0})
	for i, kv := range vars {
		eq := bytes.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToUpper(string(kv[:eq]))
		for _, s := range sensitiveKeys {
			if strings.Contains(key, s) {
				vars[i] = append(kv[:eq+1:eq+1], "[REDACTED]"...)
				break
			}
		}
	}
	return bytes.Join(vars, []byte{0})
}

// goroutineStacks returns the traces of all goroutines, growing the buffer
// until they fit or the cap is hit.
func goroutineStacks() []byte {
	const maxSize = 16 << 20
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= maxSize {
			return buf[:n]
		}
		buf = make([]byte, 2*len(buf))
	}
}
