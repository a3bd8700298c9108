package mcf

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

type File struct {
	Data     []byte
	Header   *MCFHeader
	Sections []MCFSection
	mmapped  bool
}

// Open maps an MCF file read-only and validates its structure.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < mcfHeaderSize || size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		mf, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return mf, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// OpenReaderAt loads and validates an MCF from a random-access reader without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	hdr, ok := decodeHeader(data)
	if !ok {
		return nil, ErrCorruptFile
	}
	if !hdr.Valid() {
		return nil, ErrInvalidMagic
	}
	if !hdr.Compatible() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMajor, hdr.Major)
	}
	if hdr.FileSize != uint64(len(data)) {
		return nil, fmt.Errorf("%w: header records %d bytes, file has %d", ErrCorruptFile, hdr.FileSize, len(data))
	}
	if hdr.HeaderSize < mcfHeaderSize || uint64(hdr.HeaderSize) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: header size %d", ErrCorruptFile, hdr.HeaderSize)
	}
	if hdr.SectionCount == 0 {
		return nil, fmt.Errorf("%w: no sections", ErrCorruptFile)
	}

	dirStart := hdr.SectionDirOffset
	dirEnd := dirStart + uint64(hdr.SectionCount)*mcfSectionSize
	if dirStart < uint64(hdr.HeaderSize) || dirEnd < dirStart || dirEnd > uint64(len(data)) {
		return nil, fmt.Errorf("%w: section directory out of bounds", ErrCorruptFile)
	}

	sections := make([]MCFSection, hdr.SectionCount)
	seen := make(map[uint32]struct{}, len(sections))
	for i := range sections {
		start := int(dirStart) + i*mcfSectionSize
		s, _ := decodeSection(data[start : start+mcfSectionSize])
		if _, dup := seen[s.Type]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSection, SectionType(s.Type))
		}
		seen[s.Type] = struct{}{}

		end := s.End()
		switch {
		case end < s.Offset:
			return nil, fmt.Errorf("%w: section %d offset overflow", ErrCorruptFile, i)
		case end > uint64(len(data)):
			return nil, fmt.Errorf("%w: section %d out of bounds", ErrCorruptFile, i)
		case s.Offset < uint64(hdr.HeaderSize):
			return nil, fmt.Errorf("%w: section %d overlaps header", ErrCorruptFile, i)
		case rangesOverlap(s.Offset, end, dirStart, dirEnd):
			return nil, fmt.Errorf("%w: section %d overlaps section directory", ErrCorruptFile, i)
		case s.Offset%mcfAlign != 0:
			return nil, fmt.Errorf("%w: section %d offset not %d-byte aligned", ErrCorruptFile, i, mcfAlign)
		}
		sections[i] = s
	}

	return &File{
		Data:     data,
		Header:   &hdr,
		Sections: sections,
		mmapped:  mmapped,
	}, nil
}

// Close releases file resources and any mmap backing.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	var err error
	if f.Data != nil && f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.Header = nil
	f.Sections = nil
	f.mmapped = false
	return err
}

// Section returns the section of the given type, or nil if it does not exist.
func (f *File) Section(t SectionType) *MCFSection {
	for i := range f.Sections {
		if SectionType(f.Sections[i].Type) == t {
			return &f.Sections[i]
		}
	}
	return nil
}

// SectionData returns a zero-copy slice covering the section payload.
// The caller must not retain this slice after File.Close().
func (f *File) SectionData(s *MCFSection) []byte {
	if f == nil || s == nil || f.Data == nil {
		return nil
	}
	end := s.End()
	if end < s.Offset || end > uint64(len(f.Data)) {
		return nil
	}
	return f.Data[int(s.Offset):int(end)]
}

// Payload returns the data of the section of type t.
func (f *File) Payload(t SectionType) ([]byte, error) {
	s := f.Section(t)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, t)
	}
	return f.SectionData(s), nil
}
