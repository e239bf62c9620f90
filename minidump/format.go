package minidump

import (
	"bytes"
	"encoding/binary"
	"time"
	"unicode/utf16"
)

const (
	Signature = 0x504d444d // "MDMP"
	Version   = 0xa793

	headerSize         = 32
	directoryEntrySize = 12
	systemInfoSize     = 56
)

type StreamType uint32

const (
	ThreadListStream StreamType = 3
	ModuleListStream StreamType = 4
	MemoryListStream StreamType = 5
	ExceptionStream  StreamType = 6
	SystemInfoStream StreamType = 7
	MiscInfoStream   StreamType = 15

	// Breakpad Linux extensions.
	LinuxCPUInfoStream    StreamType = 0x47670003
	LinuxProcStatusStream StreamType = 0x47670004
	LinuxLSBReleaseStream StreamType = 0x47670005
	LinuxCmdLineStream    StreamType = 0x47670006
	LinuxEnvironStream    StreamType = 0x47670007
	LinuxAuxvStream       StreamType = 0x47670008
	LinuxMapsStream       StreamType = 0x47670009

	// User streams written by this package.
	GoroutinesStream  StreamType = 0x474f0001
	ProcessInfoStream StreamType = 0x474f0002
)

var streamNames = map[StreamType]string{
	ThreadListStream:      "ThreadList",
	ModuleListStream:      "ModuleList",
	MemoryListStream:      "MemoryList",
	ExceptionStream:       "Exception",
	SystemInfoStream:      "SystemInfo",
	MiscInfoStream:        "MiscInfo",
	LinuxCPUInfoStream:    "LinuxCPUInfo",
	LinuxProcStatusStream: "LinuxProcStatus",
	LinuxLSBReleaseStream: "LinuxLSBRelease",
	LinuxCmdLineStream:    "LinuxCmdLine",
	LinuxEnvironStream:    "LinuxEnviron",
	LinuxAuxvStream:       "LinuxAuxv",
	LinuxMapsStream:       "LinuxMaps",
	GoroutinesStream:      "Goroutines",
	ProcessInfoStream:     "ProcessInfo",
}

func (t StreamType) String() string {
	if s, ok := streamNames[t]; ok {
		return s
	}
	return "Unknown"
}

// Processor architectures and platform ids, as used by Breakpad.
const (
	ArchX86     = 0
	ArchARM     = 5
	ArchAMD64   = 9
	ArchARM64   = 12
	ArchUnknown = 0xffff

	PlatformWin32NT = 2
	PlatformMacOS   = 0x8101
	PlatformLinux   = 0x8201
	PlatformUnknown = 0xffff
)

// DumpRequested is the exception code of a dump taken on request rather
// than from inside a hardware exception handler.
const DumpRequested = 0xffffffff

const (
	miscProcessID    = 0x1
	miscProcessTimes = 0x2
)

type Header struct {
	Signature          uint32
	Version            uint32
	NumberOfStreams    uint32
	StreamDirectoryRVA uint32
	CheckSum           uint32
	TimeDateStamp      uint32
	Flags              uint64
}

type directoryEntry struct {
	Type     uint32
	DataSize uint32
	RVA      uint32
}

type SystemInfo struct {
	ProcessorArchitecture uint16
	ProcessorLevel        uint16
	ProcessorRevision     uint16
	NumberOfProcessors    uint8
	ProductType           uint8
	MajorVersion          uint32
	MinorVersion          uint32
	BuildNumber           uint32
	PlatformID            uint32
	CSDVersionRVA         uint32
	SuiteMask             uint16
	Reserved2             uint16
	CPU                   [24]byte
}

type MiscInfo struct {
	SizeOfInfo        uint32
	Flags1            uint32
	ProcessID         uint32
	ProcessCreateTime uint32
	ProcessUserTime   uint32
	ProcessKernelTime uint32
}

type Exception struct {
	ThreadID             uint32
	Alignment            uint32
	ExceptionCode        uint32
	ExceptionFlags       uint32
	ExceptionRecord      uint64
	ExceptionAddress     uint64
	NumberParameters     uint32
	UnusedAlignment      uint32
	ExceptionInformation [15]uint64
	ThreadContextSize    uint32
	ThreadContextRVA     uint32
}

type pendingStream struct {
	typ    StreamType
	encode func(rva uint32) []byte
}

// builder lays out a minidump: header, stream directory, then the stream
// bodies, each starting on a 4 byte boundary.
type builder struct {
	streams []pendingStream
}

func (b *builder) add(typ StreamType, data []byte) {
	if len(data) == 0 {
		return
	}
	b.streams = append(b.streams, pendingStream{typ, func(uint32) []byte { return data }})
}

func (b *builder) addStruct(typ StreamType, v interface{}) {
	b.add(typ, encode(v))
}

func (b *builder) addSystemInfo(si SystemInfo, csdVersion string) {
	b.streams = append(b.streams, pendingStream{SystemInfoStream, func(rva uint32) []byte {
		si.CSDVersionRVA = rva + systemInfoSize
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, si)
		buf.Write(encodeString(csdVersion))
		return buf.Bytes()
	}})
}

func (b *builder) bytes(ts time.Time) []byte {
	var (
		n    = len(b.streams)
		rva  = uint32(headerSize + directoryEntrySize*n)
		dir  = make([]directoryEntry, 0, n)
		body bytes.Buffer
	)

	for _, s := range b.streams {
		data := s.encode(rva)
		dir = append(dir, directoryEntry{Type: uint32(s.typ), DataSize: uint32(len(data)), RVA: rva})
		body.Write(data)

		padded := align4(len(data))
		body.Write(make([]byte, padded-len(data)))
		rva += uint32(padded)
	}

	hdr := Header{
		Signature:          Signature,
		Version:            Version,
		NumberOfStreams:    uint32(n),
		StreamDirectoryRVA: headerSize,
		TimeDateStamp:      uint32(ts.Unix()),
	}

	var out bytes.Buffer
	out.Grow(int(rva))
	_ = binary.Write(&out, binary.LittleEndian, hdr)
	_ = binary.Write(&out, binary.LittleEndian, dir)
	out.Write(body.Bytes())
	return out.Bytes()
}

func encode(v interface{}) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// encodeString writes a MINIDUMP_STRING: byte length, UTF-16LE code units,
// and a terminating zero unit that the length does not count.
func encodeString(s string) []byte {
	units := utf16.Encode([]rune(s))
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(units)*2))
	_ = binary.Write(&buf, binary.LittleEndian, units)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0))
	return buf.Bytes()
}

func align4(n int) int {
	return (n + 3) &^ 3
}
