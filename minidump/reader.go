package minidump

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"unicode/utf16"
)

var ErrNoStream = errors.New("minidump: stream not present")

// File is a parsed minidump: its header and the raw bytes of each stream.
type File struct {
	Header  Header
	Streams []Stream

	data []byte
}

type Stream struct {
	Type StreamType
	Data []byte
}

// ReadFile parses the minidump stored at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(data)
}

// Read parses the header and stream directory of a minidump. Stream
// payloads are sliced out of data, not copied.
func Read(data []byte) (*File, error) {
	f := &File{data: data}
	if len(data) < headerSize {
		return nil, fmt.Errorf("minidump: short header (%d bytes)", len(data))
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &f.Header); err != nil {
		return nil, err
	}
	if f.Header.Signature != Signature {
		return nil, fmt.Errorf("minidump: bad signature %#x", f.Header.Signature)
	}

	dirStart := int(f.Header.StreamDirectoryRVA)
	dirEnd := dirStart + int(f.Header.NumberOfStreams)*directoryEntrySize
	if dirEnd > len(data) {
		return nil, fmt.Errorf("minidump: directory of %d streams overruns file", f.Header.NumberOfStreams)
	}

	dir := make([]directoryEntry, f.Header.NumberOfStreams)
	if err := binary.Read(bytes.NewReader(data[dirStart:dirEnd]), binary.LittleEndian, dir); err != nil {
		return nil, err
	}

	for _, d := range dir {
		end := int(d.RVA) + int(d.DataSize)
		if end > len(data) {
			return nil, fmt.Errorf("minidump: stream %s overruns file", StreamType(d.Type))
		}
		f.Streams = append(f.Streams, Stream{Type: StreamType(d.Type), Data: data[d.RVA:end]})
	}
	return f, nil
}

// Stream returns the payload of the first stream of type t.
func (f *File) Stream(t StreamType) ([]byte, bool) {
	for _, s := range f.Streams {
		if s.Type == t {
			return s.Data, true
		}
	}
	return nil, false
}

// SystemInfo decodes the system info stream and its CSD version string.
func (f *File) SystemInfo() (SystemInfo, string, error) {
	var si SystemInfo
	data, ok := f.Stream(SystemInfoStream)
	if !ok {
		return si, "", ErrNoStream
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &si); err != nil {
		return si, "", err
	}
	csd, err := f.readString(si.CSDVersionRVA)
	return si, csd, err
}

func (f *File) MiscInfo() (MiscInfo, error) {
	var mi MiscInfo
	data, ok := f.Stream(MiscInfoStream)
	if !ok {
		return mi, ErrNoStream
	}
	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &mi)
	return mi, err
}

func (f *File) Exception() (Exception, error) {
	var ex Exception
	data, ok := f.Stream(ExceptionStream)
	if !ok {
		return ex, ErrNoStream
	}
	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &ex)
	return ex, err
}

func (f *File) readString(rva uint32) (string, error) {
	if rva == 0 {
		return "", nil
	}
	if int(rva)+4 > len(f.data) {
		return "", fmt.Errorf("minidump: string at %#x out of range", rva)
	}
	n := int(binary.LittleEndian.Uint32(f.data[rva:]))
	start := int(rva) + 4
	if start+n > len(f.data) || n%2 != 0 {
		return "", fmt.Errorf("minidump: string at %#x out of range", rva)
	}
	units := make([]uint16, n/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(f.data[start+2*i:])
	}
	return string(utf16.Decode(units)), nil
}
