// Package panics holds the process-wide panic hook and the deferred
// helpers that route recovered panics through it.
//
// Go has no global panic hook, so goroutines opt in: Go and Guard run a
// function with Catch deferred at the top. Catch hands the payload to the
// current Hook and then terminates the process with the runtime's panic
// exit code, like an unrecovered panic would.
package panics

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
)

// ExitCode is the status the Go runtime exits with after an unrecovered
// panic.
const ExitCode = 2

// Info describes a panic in flight.
type Info struct {
	// Payload is the value passed to panic.
	Payload interface{}

	// Stack is the trace of the panicking goroutine, captured when the
	// panic was recovered.
	Stack []byte
}

func (i *Info) String() string {
	return fmt.Sprintf("panic: %v", i.Payload)
}

// Hook observes panics. Hooks run on the panicking goroutine.
type Hook func(info *Info)

var (
	hookMu sync.RWMutex
	hook   Hook = DefaultHook

	// exit is swapped in tests.
	exit = os.Exit
)

// DefaultHook prints the payload and the stack to stderr.
func DefaultHook(info *Info) {
	_, _ = fmt.Fprintf(os.Stderr, "%s\n\n%s", info, info.Stack)
}

// SetHook replaces the process-wide panic hook. A nil hook restores the
// default one.
func SetHook(h Hook) {
	if h == nil {
		h = DefaultHook
	}
	hookMu.Lock()
	hook = h
	hookMu.Unlock()
}

// TakeHook returns the current hook and restores the default one in its
// place. Chaining hooks is done with TakeHook followed by SetHook.
func TakeHook() Hook {
	hookMu.Lock()
	defer hookMu.Unlock()
	h := hook
	hook = DefaultHook
	return h
}

func currentHook() Hook {
	hookMu.RLock()
	defer hookMu.RUnlock()
	return hook
}

// Handle runs the current hook for payload, on the calling goroutine.
func Handle(payload interface{}) {
	currentHook()(&Info{
		Payload: payload,
		Stack:   debug.Stack(),
	})
}

// Catch must be deferred at the top of a goroutine. A recovered panic is
// passed to the current hook, after which the process exits.
func Catch() {
	obj := recover()
	if obj == nil {
		return
	}
	Handle(obj)
	exit(ExitCode)
}

// Go runs fn on a new goroutine that reports panics through the hook.
// Memory faults inside fn are turned into panics instead of killing the
// process outright.
func Go(fn func()) {
	go Guard(fn)
}

// Guard runs fn on the calling goroutine with the same protection as Go.
func Guard(fn func()) {
	defer Catch()
	debug.SetPanicOnFault(true)
	fn()
}
