package minidump

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/windows"
)

var (
	dbghelp               = windows.NewLazySystemDLL("dbghelp.dll")
	procMiniDumpWriteDump = dbghelp.NewProc("MiniDumpWriteDump")
)

const (
	miniDumpNormal                = 0x00000000
	miniDumpWithProcessThreadData = 0x00000100
	miniDumpWithThreadInfo        = 0x00001000
)

type windowsWriter struct {
	*namer
}

func newPlatformWriter(_ Config, n *namer) Writer {
	return &windowsWriter{namer: n}
}

func (w *windowsWriter) Capture() (string, []byte, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := procMiniDumpWriteDump.Find(); err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupported, err)
	}

	path := w.next(os.Getpid())
	f, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	r1, _, e1 := procMiniDumpWriteDump.Call(
		uintptr(windows.CurrentProcess()),
		uintptr(windows.GetCurrentProcessId()),
		f.Fd(),
		uintptr(miniDumpNormal|miniDumpWithProcessThreadData|miniDumpWithThreadInfo),
		0, // no exception pointers; the calling thread is recorded as crashing.
		0,
		0,
	)
	if r1 == 0 {
		return "", nil, fmt.Errorf("MiniDumpWriteDump: %w", e1)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", nil, err
	}
	buf, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return path, buf, nil
}
