//go:build linux || darwin

package minidump

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureWritesDump(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	w := New(Config{Dir: dir, SanitizeStack: true})

	path, buf, err := w.Capture()
	require.NoError(err)
	require.Equal(filepath.Join(dir, Path("", os.Getpid(), 0)), path)

	onDisk, err := os.ReadFile(path)
	require.NoError(err)
	require.Equal(onDisk, buf)

	f, err := Read(buf)
	require.NoError(err)

	mi, err := f.MiscInfo()
	require.NoError(err)
	require.EqualValues(os.Getpid(), mi.ProcessID)

	gs, ok := f.Stream(GoroutinesStream)
	require.True(ok)
	require.Contains(string(gs), "TestCaptureWritesDump")

	_, ok = f.Stream(ProcessInfoStream)
	require.True(ok)

	ex, err := f.Exception()
	require.NoError(err)
	if runtime.GOOS == "linux" {
		require.NotZero(ex.ThreadID)
		_, ok = f.Stream(LinuxMapsStream)
		require.True(ok)
	}

	// the second dump of the same process must not clobber the first.
	path2, _, err := w.Capture()
	require.NoError(err)
	require.NotEqual(path, path2)
	require.FileExists(path)
}

func TestCaptureFailsOnMissingDir(t *testing.T) {
	w := New(Config{Dir: filepath.Join(t.TempDir(), "does", "not", "exist")})
	_, _, err := w.Capture()
	require.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	tests := map[string][3]uint32{
		"6.1.0-13-amd64": {6, 1, 0},
		"23.1.0":         {23, 1, 0},
		"5.15":           {5, 15, 0},
		"":               {0, 0, 0},
	}
	for in, want := range tests {
		maj, min, build := parseVersion(in)
		require.Equal(t, want, [3]uint32{maj, min, build}, in)
	}
}
