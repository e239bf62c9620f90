//go:build linux || darwin

package minidump

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

// unixWriter serializes the process in memory and writes the result
// atomically, so a reader never sees a half-written dump.
type unixWriter struct {
	*namer

	platformID uint32
	sanitize   bool

	// threadID returns the OS thread to record as crashing; 0 means the
	// calling thread.
	threadID func() int

	// platformStreams appends OS specific streams for pid.
	platformStreams func(b *builder, pid int)
}

func (w *unixWriter) Capture() (string, []byte, error) {
	// pin the goroutine so the recorded thread is the one running us.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var (
		pid  = os.Getpid()
		tid  = 0
		proc *process.Process
	)
	if w.threadID != nil {
		tid = w.threadID()
	}
	if p, err := process.NewProcess(int32(pid)); err == nil {
		proc = p
	}

	var b builder
	si, csd := systemInfo(w.platformID)
	b.addSystemInfo(si, csd)
	b.addStruct(MiscInfoStream, miscInfo(pid, proc))
	b.addStruct(ExceptionStream, Exception{
		ThreadID:      uint32(tid),
		ExceptionCode: DumpRequested,
	})

	stacks := goroutineStacks()
	if w.sanitize {
		stacks = SanitizeStack(stacks)
	}
	b.add(GoroutinesStream, stacks)

	if info, err := json.Marshal(processInfo(pid, tid, proc)); err == nil {
		b.add(ProcessInfoStream, info)
	}
	if w.platformStreams != nil {
		w.platformStreams(&b, pid)
	}

	buf := b.bytes(time.Now())
	path := w.next(pid)
	if err := renameio.WriteFile(path, buf, 0o600); err != nil {
		return "", nil, fmt.Errorf("writing minidump %s: %w", path, err)
	}
	return path, buf, nil
}

func systemInfo(platformID uint32) (SystemInfo, string) {
	si := SystemInfo{
		ProcessorArchitecture: arch(runtime.GOARCH),
		NumberOfProcessors:    uint8(min(runtime.NumCPU(), 255)),
		PlatformID:            platformID,
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		si.NumberOfProcessors = uint8(min(n, 255))
	}

	info, err := host.Info()
	if err != nil {
		return si, ""
	}
	si.MajorVersion, si.MinorVersion, si.BuildNumber = parseVersion(info.KernelVersion)
	csd := strings.TrimSpace(fmt.Sprintf("%s %s %s", info.Platform, info.PlatformVersion, info.KernelVersion))
	return si, csd
}

func miscInfo(pid int, proc *process.Process) MiscInfo {
	mi := MiscInfo{
		SizeOfInfo: 24,
		Flags1:     miscProcessID,
		ProcessID:  uint32(pid),
	}
	if proc == nil {
		return mi
	}
	created, err := proc.CreateTime()
	if err != nil {
		return mi
	}
	mi.ProcessCreateTime = uint32(created / 1000)
	if times, err := proc.Times(); err == nil {
		mi.Flags1 |= miscProcessTimes
		mi.ProcessUserTime = uint32(times.User)
		mi.ProcessKernelTime = uint32(times.System)
	}
	return mi
}

func processInfo(pid, tid int, proc *process.Process) ProcessInfo {
	pi := ProcessInfo{
		PID:          pid,
		ThreadID:     tid,
		GoVersion:    runtime.Version(),
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
	}
	if proc == nil {
		return pi
	}
	pi.Executable, _ = proc.Exe()
	pi.Cmdline, _ = proc.Cmdline()
	pi.NumThreads, _ = proc.NumThreads()
	if mem, err := proc.MemoryInfo(); err == nil {
		pi.RSS = mem.RSS
	}
	if ms, err := proc.CreateTime(); err == nil {
		pi.CreateTime = time.UnixMilli(ms).UTC()
	}
	return pi
}

func arch(goarch string) uint16 {
	switch goarch {
	case "amd64":
		return ArchAMD64
	case "arm64":
		return ArchARM64
	case "386":
		return ArchX86
	case "arm":
		return ArchARM
	default:
		return ArchUnknown
	}
}

// parseVersion extracts major.minor.build from a kernel release string
// such as "6.1.0-13-amd64" or "23.1.0".
func parseVersion(v string) (major, minor, build uint32) {
	var out [3]uint32
	for i, part := range strings.SplitN(v, ".", 3) {
		end := 0
		for end < len(part) && part[end] >= '0' && part[end] <= '9' {
			end++
		}
		n, _ := strconv.ParseUint(part[:end], 10, 32)
		out[i] = uint32(n)
		if end < len(part) {
			break
		}
	}
	return out[0], out[1], out[2]
}
