// Package stacktrace turns the current call stack into event frames.
package stacktrace

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/crashhook/sdk-go/event"
)

// The maximum number of program counters collected for a single trace.
const maxDepth = 100

// Capture returns the stack of the calling goroutine, oldest frame first.
//
// When called while a panic is unwinding (from a deferred function or a
// panic hook), everything from runtime.gopanic inward is dropped so the
// trace ends at the function that panicked. Otherwise skip frames above
// the caller of Capture are dropped.
func Capture(skip int) *event.Stacktrace {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(2+skip, pcs)
	if n == 0 {
		return nil
	}

	var frames []event.Frame
	it := runtime.CallersFrames(pcs[:n])
	for {
		f, more := it.Next()
		if f.Function == "runtime.gopanic" {
			// discard the hook machinery collected so far.
			frames = frames[:0]
		} else if f.Function != "" {
			frames = append(frames, NewFrame(f))
		}
		if !more {
			break
		}
	}
	if len(frames) == 0 {
		return nil
	}

	// oldest first.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return &event.Stacktrace{Frames: frames}
}

// NewFrame converts a runtime frame.
func NewFrame(f runtime.Frame) event.Frame {
	module, function := SplitFunction(f.Function)
	return event.Frame{
		Function: function,
		Module:   module,
		Filename: filepath.Base(f.File),
		AbsPath:  f.File,
		Lineno:   f.Line,
		InApp:    InApp(module),
	}
}

// SplitFunction splits a fully qualified function name such as
// "github.com/a/b.(*T).Method" into its package path and symbol.
func SplitFunction(name string) (module, function string) {
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	if dot < 0 {
		return "", name
	}
	dot += slash + 1
	return name[:dot], name[dot+1:]
}

// InApp reports whether a package belongs to the application rather than
// the Go distribution. Standard library paths have no dot in their first
// element.
func InApp(module string) bool {
	if module == "" || module == "main" {
		return module == "main"
	}
	first := module
	if i := strings.Index(module, "/"); i >= 0 {
		first = module[:i]
	}
	return strings.Contains(first, ".")
}
