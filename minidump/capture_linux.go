package minidump

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// linuxProcFiles are the Breakpad Linux streams, relative to /proc/<pid>
// unless absolute.
var linuxProcFiles = []struct {
	typ  StreamType
	path string
}{
	{LinuxCPUInfoStream, "/proc/cpuinfo"},
	{LinuxProcStatusStream, "status"},
	{LinuxLSBReleaseStream, "/etc/lsb-release"},
	{LinuxCmdLineStream, "cmdline"},
	{LinuxEnvironStream, "environ"},
	{LinuxAuxvStream, "auxv"},
	{LinuxMapsStream, "maps"},
}

func newPlatformWriter(cfg Config, n *namer) Writer {
	return &unixWriter{
		namer:           n,
		platformID:      PlatformLinux,
		sanitize:        cfg.SanitizeStack,
		threadID:        unix.Gettid,
		platformStreams: linuxStreams,
	}
}

func linuxStreams(b *builder, pid int) {
	for _, f := range linuxProcFiles {
		path := f.path
		if path[0] != '/' {
			path = fmt.Sprintf("/proc/%d/%s", pid, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if f.typ == LinuxEnvironStream {
			data = RedactEnviron(data)
		}
		b.add(f.typ, data)
	}
}
