package mcf

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// TensorIndexVersion is the on-disk version of the tensor index payload.
const TensorIndexVersion uint32 = 1

// TensorDType identifies the tensor element encoding.
// Keep these stable forever; add new values only.
type TensorDType uint32

const (
	DTypeUnknown TensorDType = iota
	DTypeF32
)

func (d TensorDType) String() string {
	if d == DTypeF32 {
		return "f32"
	}
	return "unknown"
}

// Tensor is a named float32 tensor to be written.
type Tensor struct {
	Name  string
	Shape []uint64
	Data  []float32
}

// TensorInfo describes a stored tensor. DataOff is an absolute file offset.
type TensorInfo struct {
	Name     string
	DType    TensorDType
	Shape    []uint64
	DataOff  uint64
	DataSize uint64
}

// Elements is the product of the shape.
func (t TensorInfo) Elements() uint64 {
	n := uint64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// WriteTensors writes a TensorData section holding every tensor, each
// aligned to 64 bytes, followed by the TensorIndex section describing them.
func (w *Writer) WriteTensors(tensors []Tensor) error {
	if len(tensors) == 0 {
		return fmt.Errorf("mcf: no tensors")
	}
	sw, err := w.BeginSection(SectionTensorData, 1)
	if err != nil {
		return err
	}
	infos := make([]TensorInfo, 0, len(tensors))
	var buf []byte
	for _, t := range tensors {
		info := TensorInfo{Name: t.Name, DType: DTypeF32, Shape: t.Shape}
		if info.Elements() != uint64(len(t.Data)) {
			return fmt.Errorf("mcf: tensor %s: shape %v does not match %d values", t.Name, t.Shape, len(t.Data))
		}
		if err := sw.Align(tensorAlign); err != nil {
			return err
		}
		if info.DataOff, err = sw.Offset(); err != nil {
			return err
		}
		buf = EncodeF32(buf[:0], t.Data)
		if _, err := sw.Write(buf); err != nil {
			return err
		}
		info.DataSize = uint64(len(buf))
		infos = append(infos, info)
	}
	if err := sw.End(); err != nil {
		return err
	}
	index, err := EncodeTensorIndex(infos)
	if err != nil {
		return err
	}
	if err := w.WriteSection(SectionTensorIndex, TensorIndexVersion, index); err != nil {
		return err
	}
	return w.AddFlags(FlagTensorDataAligned64)
}

// EncodeTensorIndex builds a tensor index payload. Entries are sorted by name.
//
// Layout: version u32 | count u32 | entries, where each entry is
// nameLen u32 | name | dtype u32 | rank u32 | dims u64... | dataOff u64 | dataSize u64.
func EncodeTensorIndex(infos []TensorInfo) ([]byte, error) {
	sorted := append([]TensorInfo(nil), infos...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	out := binary.LittleEndian.AppendUint32(nil, TensorIndexVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(sorted)))
	for i, t := range sorted {
		if t.Name == "" {
			return nil, fmt.Errorf("mcf: tensor name must be non-empty")
		}
		if i > 0 && sorted[i-1].Name == t.Name {
			return nil, fmt.Errorf("mcf: duplicate tensor %s", t.Name)
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(len(t.Name)))
		out = append(out, t.Name...)
		out = binary.LittleEndian.AppendUint32(out, uint32(t.DType))
		out = binary.LittleEndian.AppendUint32(out, uint32(len(t.Shape)))
		for _, d := range t.Shape {
			out = binary.LittleEndian.AppendUint64(out, d)
		}
		out = binary.LittleEndian.AppendUint64(out, t.DataOff)
		out = binary.LittleEndian.AppendUint64(out, t.DataSize)
	}
	return out, nil
}

type cursor struct {
	b   []byte
	off int
	bad bool
}

func (c *cursor) take(n int) []byte {
	if c.bad || n < 0 || c.off+n > len(c.b) {
		c.bad = true
		return nil
	}
	p := c.b[c.off : c.off+n]
	c.off += n
	return p
}

func (c *cursor) u32() uint32 {
	if p := c.take(4); p != nil {
		return binary.LittleEndian.Uint32(p)
	}
	return 0
}

func (c *cursor) u64() uint64 {
	if p := c.take(8); p != nil {
		return binary.LittleEndian.Uint64(p)
	}
	return 0
}

// ParseTensorIndex decodes a tensor index payload.
func ParseTensorIndex(sec []byte) ([]TensorInfo, error) {
	c := &cursor{b: sec}
	if v := c.u32(); !c.bad && v != TensorIndexVersion {
		return nil, fmt.Errorf("%w: tensor index version %d", ErrCorruptFile, v)
	}
	count := c.u32()
	if c.bad || uint64(count) > uint64(len(sec)) {
		return nil, fmt.Errorf("%w: tensor index header", ErrCorruptFile)
	}
	out := make([]TensorInfo, 0, count)
	for range count {
		var t TensorInfo
		t.Name = string(c.take(int(c.u32())))
		t.DType = TensorDType(c.u32())
		rank := c.u32()
		if c.bad || rank > 8 {
			return nil, fmt.Errorf("%w: tensor index entry", ErrCorruptFile)
		}
		t.Shape = make([]uint64, rank)
		for d := range t.Shape {
			t.Shape[d] = c.u64()
		}
		t.DataOff = c.u64()
		t.DataSize = c.u64()
		if c.bad {
			return nil, fmt.Errorf("%w: tensor index entry", ErrCorruptFile)
		}
		out = append(out, t)
	}
	return out, nil
}

// Tensors parses the tensor index of f.
func (f *File) Tensors() ([]TensorInfo, error) {
	sec, err := f.Payload(SectionTensorIndex)
	if err != nil {
		return nil, err
	}
	return ParseTensorIndex(sec)
}

// Tensor looks up a tensor by name.
func (f *File) Tensor(name string) (TensorInfo, error) {
	infos, err := f.Tensors()
	if err != nil {
		return TensorInfo{}, err
	}
	i := sort.Search(len(infos), func(i int) bool { return infos[i].Name >= name })
	if i < len(infos) && infos[i].Name == name {
		return infos[i], nil
	}
	return TensorInfo{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
}

// ReadF32 decodes the payload of t, which must lie inside the TensorData
// section.
func (f *File) ReadF32(t TensorInfo) ([]float32, error) {
	if t.DType != DTypeF32 {
		return nil, fmt.Errorf("%w: tensor %s has dtype %s", ErrCorruptFile, t.Name, t.DType)
	}
	if t.DataSize != 4*t.Elements() {
		return nil, fmt.Errorf("%w: tensor %s size %d does not match shape %v", ErrCorruptFile, t.Name, t.DataSize, t.Shape)
	}
	sec := f.Section(SectionTensorData)
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, SectionTensorData)
	}
	end := t.DataOff + t.DataSize
	if end < t.DataOff || t.DataOff < sec.Offset || end > sec.End() {
		return nil, fmt.Errorf("%w: tensor %s outside tensor data", ErrCorruptFile, t.Name)
	}
	return DecodeF32(f.Data[t.DataOff:end]), nil
}

// EncodeF32 appends the little-endian encoding of vals to dst.
func EncodeF32(dst []byte, vals []float32) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// DecodeF32 decodes little-endian float32 values. Trailing bytes are ignored.
func DecodeF32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}
