package minidump

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	require := require.New(t)
	require.Equal(filepath.Join("/tmp", "dump_42.mdmp"), Path("/tmp", 42, 0))
	require.Equal(filepath.Join("/tmp", "dump_42_3.mdmp"), Path("/tmp", 42, 3))

	n := &namer{dir: "/var/crash"}
	require.Equal(filepath.Join("/var/crash", "dump_7.mdmp"), n.next(7))
	require.Equal(filepath.Join("/var/crash", "dump_7_1.mdmp"), n.next(7))
}

func TestBuilderLayout(t *testing.T) {
	require := require.New(t)

	var b builder
	b.addSystemInfo(SystemInfo{ProcessorArchitecture: ArchAMD64, PlatformID: PlatformLinux}, "Linux 6.1.0")
	b.addStruct(MiscInfoStream, MiscInfo{SizeOfInfo: 24, Flags1: miscProcessID, ProcessID: 4242})
	b.addStruct(ExceptionStream, Exception{ThreadID: 77, ExceptionCode: DumpRequested})
	b.add(GoroutinesStream, []byte("goroutine 1 [running]:"))
	b.add(LinuxMapsStream, nil) // empty streams are skipped.

	ts := time.Unix(1700000000, 0)
	f, err := Read(b.bytes(ts))
	require.NoError(err)

	require.EqualValues(Version, f.Header.Version)
	require.EqualValues(4, f.Header.NumberOfStreams)
	require.EqualValues(ts.Unix(), f.Header.TimeDateStamp)

	for _, s := range f.Streams {
		require.NotEqual("Unknown", s.Type.String())
	}

	si, csd, err := f.SystemInfo()
	require.NoError(err)
	require.EqualValues(ArchAMD64, si.ProcessorArchitecture)
	require.EqualValues(PlatformLinux, si.PlatformID)
	require.Equal("Linux 6.1.0", csd)

	mi, err := f.MiscInfo()
	require.NoError(err)
	require.EqualValues(4242, mi.ProcessID)

	ex, err := f.Exception()
	require.NoError(err)
	require.EqualValues(77, ex.ThreadID)
	require.EqualValues(uint32(DumpRequested), ex.ExceptionCode)

	gs, ok := f.Stream(GoroutinesStream)
	require.True(ok)
	require.Equal("goroutine 1 [running]:", string(gs))

	_, ok = f.Stream(LinuxMapsStream)
	require.False(ok)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read([]byte("MDMP"))
	require.Error(t, err)

	_, err = Read(bytes.Repeat([]byte{0xff}, 64))
	require.Error(t, err)

	var b builder
	f, err := Read(b.bytes(time.Now()))
	require.NoError(t, err)
	_, _, err = f.SystemInfo()
	require.True(t, errors.Is(err, ErrNoStream))
}

func TestSanitizeStack(t *testing.T) {
	in := "goroutine 1 [running]:\n" +
		"main.explode(0xc000012345, 0x2)\n" +
		"\t/src/main.go:12 +0x1d\n" +
		"github.com/a/b.(*T).Run(0xc0000a0000, {0x4a1b20?, 0x4e8d50?})\n" +
		"\t/src/b.go:40 +0x55\n" +
		"main.main()\n" +
		"\t/src/main.go:5 +0x17\n"

	out := string(SanitizeStack([]byte(in)))
	require.Contains(t, out, "main.explode(...)\n")
	require.Contains(t, out, "github.com/a/b.(*T).Run(...)\n")
	require.Contains(t, out, "main.main()\n")
	require.Contains(t, out, "\t/src/main.go:12 +0x1d")
	require.NotContains(t, out, "0xc000012345")
}

func TestRedactEnviron(t *testing.T) {
	in := []byte("HOME=/root\x00API_TOKEN=abc\x00DB_PASSWORD=hunter2\x00PATH=/bin\x00")
	out := string(RedactEnviron(in))
	require.Contains(t, out, "HOME=/root\x00")
	require.Contains(t, out, "API_TOKEN=[REDACTED]\x00")
	require.Contains(t, out, "DB_PASSWORD=[REDACTED]\x00")
	require.Contains(t, out, "PATH=/bin\x00")
	require.NotContains(t, out, "hunter2")
}
