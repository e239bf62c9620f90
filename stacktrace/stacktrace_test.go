package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crashhook/sdk-go/event"
)

func TestSplitFunction(t *testing.T) {
	tests := []struct {
		in       string
		module   string
		function string
	}{
		{"main.main", "main", "main"},
		{"runtime.goexit", "runtime", "goexit"},
		{"github.com/crashhook/sdk-go/panics.Catch", "github.com/crashhook/sdk-go/panics", "Catch"},
		{"github.com/a/b.(*T).Method", "github.com/a/b", "(*T).Method"},
		{"github.com/a/b.f.func1", "github.com/a/b", "f.func1"},
		{"nodot", "", "nodot"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, f := SplitFunction(tt.in)
			require.Equal(t, tt.module, m)
			require.Equal(t, tt.function, f)
		})
	}
}

func TestInApp(t *testing.T) {
	require := require.New(t)
	require.True(InApp("main"))
	require.True(InApp("github.com/crashhook/sdk-go/event"))
	require.False(InApp("runtime"))
	require.False(InApp("net/http"))
	require.False(InApp(""))
}

func TestCaptureOldestFirst(t *testing.T) {
	st := Capture(0)
	require.NotNil(t, st)

	last := st.Frames[len(st.Frames)-1]
	require.Equal(t, "TestCaptureOldestFirst", last.Function)
	require.Equal(t, "stacktrace_test.go", last.Filename)
	require.True(t, last.InApp)
}

func TestCaptureTrimsPanicMachinery(t *testing.T) {
	var st *event.Stacktrace
	func() {
		defer func() {
			_ = recover()
		}()
		defer func() {
			st = Capture(0)
		}()
		explode()
	}()

	require.NotNil(t, st)
	last := st.Frames[len(st.Frames)-1]
	require.Equal(t, "explode", last.Function)
}

//go:noinline
func explode() {
	panic("boom")
}
