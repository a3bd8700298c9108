// Package checkpoint persists a trained network and its vocabulary as a
// single MCF container.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/samcharles93/charrnn/internal/model"
	"github.com/samcharles93/charrnn/internal/vocab"
	"github.com/samcharles93/charrnn/pkg/mcf"
)

// DefaultFileName is the artifact name inside the data directory.
const DefaultFileName = "charrnn_model.mcf"

// Format tags the ModelInfo section so foreign MCF files are rejected.
const Format = "charrnn/lstm"

var (
	ErrFormat             = errors.New("checkpoint: not a charrnn model")
	ErrVocabularyMismatch = errors.New("checkpoint: vocabulary does not match network")
)

// Meta records how a checkpoint was produced.
type Meta struct {
	Charset    string    `json:"charset,omitempty"`
	Epochs     int       `json:"epochs,omitempty"`
	Iterations int       `json:"iterations,omitempty"`
	Score      float64   `json:"score,omitempty"`
	Version    string    `json:"version,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type modelInfo struct {
	Format string       `json:"format"`
	Config model.Config `json:"config"`
	Meta   Meta         `json:"meta"`
}

// Checkpoint is a loaded model ready for generation.
type Checkpoint struct {
	Net   *model.Network
	Vocab *vocab.Vocabulary
	Meta  Meta
}

// Path returns the default artifact location inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, DefaultFileName)
}

// Save writes the network to a temporary file next to path and renames it
// into place, so a failed save never leaves a truncated artifact behind.
func Save(path string, net *model.Network, v *vocab.Vocabulary, meta Meta) error {
	if v.Size() != net.OutputSize() || v.Size() != net.Config().InputSize {
		return fmt.Errorf("%w: %d characters for a %d->%d network", ErrVocabularyMismatch, v.Size(), net.Config().InputSize, net.OutputSize())
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	info, err := json.Marshal(modelInfo{Format: Format, Config: net.Config(), Meta: meta})
	if err != nil {
		return fmt.Errorf("checkpoint: encode model info: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	f, err := os.CreateTemp(dir, ".charrnn-*.mcf")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	tmp := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}()

	w, err := mcf.NewWriter(f)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := w.WriteSection(mcf.SectionModelInfo, 1, info); err != nil {
		return fmt.Errorf("checkpoint: model info: %w", err)
	}
	if err := w.WriteSection(mcf.SectionVocabulary, 1, []byte(v.String())); err != nil {
		return fmt.Errorf("checkpoint: vocabulary: %w", err)
	}
	params := net.Params()
	tensors := make([]mcf.Tensor, len(params))
	for i, p := range params {
		tensors[i] = mcf.Tensor{
			Name:  p.Name,
			Shape: []uint64{uint64(p.Value.R), uint64(p.Value.C)},
			Data:  p.Value.Data,
		}
	}
	if err := w.WriteTensors(tensors); err != nil {
		return fmt.Errorf("checkpoint: tensors: %w", err)
	}
	if err := w.Finalise(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint written by Save.
func Load(path string) (*Checkpoint, error) {
	mf, err := mcf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer func() { _ = mf.Close() }()

	info, err := readInfo(mf)
	if err != nil {
		return nil, err
	}
	raw, err := mf.Payload(mcf.SectionVocabulary)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	v, err := vocab.FromString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: vocabulary: %w", err)
	}
	if v.Size() != info.Config.OutputSize || v.Size() != info.Config.InputSize {
		return nil, fmt.Errorf("%w: %d characters for a %d->%d network", ErrVocabularyMismatch, v.Size(), info.Config.InputSize, info.Config.OutputSize)
	}

	net, err := model.New(info.Config)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	for _, p := range net.Params() {
		t, err := mf.Tensor(p.Name)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: %w", err)
		}
		if len(t.Shape) != 2 || t.Shape[0] != uint64(p.Value.R) || t.Shape[1] != uint64(p.Value.C) {
			return nil, fmt.Errorf("%w: tensor %s has shape %v, want [%d %d]", mcf.ErrCorruptFile, p.Name, t.Shape, p.Value.R, p.Value.C)
		}
		vals, err := mf.ReadF32(t)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: %w", err)
		}
		copy(p.Value.Data, vals)
	}
	return &Checkpoint{Net: net, Vocab: v, Meta: info.Meta}, nil
}

func readInfo(mf *mcf.File) (modelInfo, error) {
	var info modelInfo
	raw, err := mf.Payload(mcf.SectionModelInfo)
	if err != nil {
		return info, fmt.Errorf("checkpoint: %w", err)
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return info, fmt.Errorf("checkpoint: decode model info: %w", err)
	}
	if info.Format != Format {
		return info, fmt.Errorf("%w: format %q", ErrFormat, info.Format)
	}
	return info, nil
}
