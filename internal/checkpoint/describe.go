package checkpoint

import (
	"fmt"

	"github.com/samcharles93/charrnn/internal/model"
	"github.com/samcharles93/charrnn/pkg/mcf"
)

// Section is one entry of the container's section directory.
type Section struct {
	Type    string `json:"type"`
	Version uint32 `json:"version"`
	Offset  uint64 `json:"offset"`
	Size    uint64 `json:"size"`
}

type Tensor struct {
	Name  string   `json:"name"`
	DType string   `json:"dtype"`
	Shape []uint64 `json:"shape"`
	Bytes uint64   `json:"bytes"`
}

// Description summarises a checkpoint file without building the network.
type Description struct {
	Major      uint16       `json:"major"`
	Minor      uint16       `json:"minor"`
	FileSize   uint64       `json:"file_size"`
	Flags      uint64       `json:"flags"`
	Config     model.Config `json:"config"`
	Meta       Meta         `json:"meta"`
	Vocabulary string       `json:"vocabulary"`
	Sections   []Section    `json:"sections"`
	Tensors    []Tensor     `json:"tensors"`
}

// Describe reads the header, directory and tensor index of a checkpoint.
func Describe(path string) (*Description, error) {
	mf, err := mcf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer func() { _ = mf.Close() }()

	info, err := readInfo(mf)
	if err != nil {
		return nil, err
	}
	d := &Description{
		Major:    mf.Header.Major,
		Minor:    mf.Header.Minor,
		FileSize: mf.Header.FileSize,
		Flags:    mf.Header.Flags,
		Config:   info.Config,
		Meta:     info.Meta,
	}
	if raw, err := mf.Payload(mcf.SectionVocabulary); err == nil {
		d.Vocabulary = string(raw)
	}
	for _, s := range mf.Sections {
		d.Sections = append(d.Sections, Section{
			Type:    mcf.SectionType(s.Type).String(),
			Version: s.Version,
			Offset:  s.Offset,
			Size:    s.Size,
		})
	}
	tensors, err := mf.Tensors()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	for _, t := range tensors {
		d.Tensors = append(d.Tensors, Tensor{Name: t.Name, DType: t.DType.String(), Shape: t.Shape, Bytes: t.DataSize})
	}
	return d, nil
}
