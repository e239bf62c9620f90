package panics

import (
	"errors"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// withHook installs h and a fake exit for the duration of the test.
func withHook(t *testing.T, h Hook) <-chan int {
	t.Helper()

	codes := make(chan int, 1)
	prevExit := exit
	exit = func(code int) { codes <- code }

	SetHook(h)
	t.Cleanup(func() {
		exit = prevExit
		SetHook(nil)
	})
	return codes
}

func TestGuardRoutesPanicThroughHook(t *testing.T) {
	var got *Info
	codes := withHook(t, func(info *Info) { got = info })

	Guard(func() { panic("bang!") })

	require.Equal(t, ExitCode, <-codes)
	require.NotNil(t, got)
	require.Equal(t, "bang!", got.Payload)
	require.Contains(t, string(got.Stack), "panics.Guard")
	require.Equal(t, "panic: bang!", got.String())
}

func TestGoFromChildGoroutine(t *testing.T) {
	infos := make(chan *Info, 1)
	codes := withHook(t, func(info *Info) { infos <- info })

	err := errors.New("terrible bang")
	Go(func() { panic(err) })

	require.Equal(t, err, (<-infos).Payload)
	require.Equal(t, ExitCode, <-codes)
}

func TestGuardTurnsFaultIntoPanic(t *testing.T) {
	var got *Info
	codes := withHook(t, func(info *Info) { got = info })

	Guard(func() {
		p := (*int)(unsafe.Pointer(uintptr(0x1)))
		_ = *p
	})

	<-codes
	require.NotNil(t, got)
	_, isErr := got.Payload.(error)
	require.True(t, isErr)
}

func TestNoPanicNoHook(t *testing.T) {
	called := false
	codes := withHook(t, func(*Info) { called = true })

	Guard(func() {})

	require.False(t, called)
	require.Empty(t, codes)
}

func TestTakeHookChaining(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	withHook(t, func(*Info) { record("first") })

	next := TakeHook()
	SetHook(func(info *Info) {
		record("second")
		next(info)
	})

	Handle("x")
	require.Equal(t, []string{"second", "first"}, order)

	// taking the hook leaves the default one behind.
	_ = TakeHook()
	require.NotNil(t, currentHook())
}
