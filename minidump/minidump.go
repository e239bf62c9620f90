// Package minidump captures a snapshot of the running process in the
// minidump container format and writes it to a temporary file.
//
// Exactly one Writer implementation is compiled in per target platform:
//
//   - linux: the current process and the calling OS thread, with goroutine
//     argument words sanitized and the Breakpad Linux streams attached.
//   - darwin: the calling process and thread, no explicit target.
//   - windows: dbghelp's MiniDumpWriteDump into a fresh file, read back.
//   - everything else: ErrUnsupported.
//
// Dump files are never removed by this package.
package minidump

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// ErrUnsupported is returned by Capture on platforms without a dump
// strategy.
var ErrUnsupported = errors.New("minidump: unsupported platform")

// Writer captures a dump of the current process. It returns the path the
// dump was written to together with its full contents.
type Writer interface {
	Capture() (path string, buf []byte, err error)
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func() (string, []byte, error)

func (f WriterFunc) Capture() (string, []byte, error) {
	return f()
}

type Config struct {
	// Dir is where dump files are created. Defaults to os.TempDir().
	Dir string

	// SanitizeStack replaces argument words in goroutine traces with "...",
	// so stack contents don't leak into the dump. Only honoured where the
	// platform strategy serializes stacks itself.
	SanitizeStack bool
}

// DefaultConfig returns the configuration used by the panic integration.
func DefaultConfig() Config {
	return Config{
		Dir:           os.TempDir(),
		SanitizeStack: true,
	}
}

// New returns the dump strategy for the platform this binary was built for.
func New(cfg Config) Writer {
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	return newPlatformWriter(cfg, &namer{dir: cfg.Dir})
}

// Path returns the dump file name for the given process. The first dump of
// a process is dump_<pid>.mdmp; later ones get a sequence suffix.
func Path(dir string, pid int, seq uint64) string {
	if seq == 0 {
		return filepath.Join(dir, fmt.Sprintf("dump_%d.mdmp", pid))
	}
	return filepath.Join(dir, fmt.Sprintf("dump_%d_%d.mdmp", pid, seq))
}

type namer struct {
	dir string
	seq atomic.Uint64
}

func (n *namer) next(pid int) string {
	return Path(n.dir, pid, n.seq.Add(1)-1)
}

// ProcessInfo is the JSON payload of the ProcessInfoStream.
type ProcessInfo struct {
	PID          int       `json:"pid"`
	ThreadID     int       `json:"tid,omitempty"`
	Executable   string    `json:"executable,omitempty"`
	Cmdline      string    `json:"cmdline,omitempty"`
	NumThreads   int32     `json:"num_threads,omitempty"`
	RSS          uint64    `json:"rss,omitempty"`
	CreateTime   time.Time `json:"create_time,omitempty"`
	GoVersion    string    `json:"go_version"`
	GOOS         string    `json:"goos"`
	GOARCH       string    `json:"goarch"`
	NumGoroutine int       `json:"num_goroutine"`
	NumCPU       int       `json:"num_cpu"`
}
