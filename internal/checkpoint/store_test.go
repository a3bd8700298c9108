package checkpoint

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/samcharles93/charrnn/internal/model"
	"github.com/samcharles93/charrnn/internal/vocab"
	"github.com/samcharles93/charrnn/pkg/mcf"
)

func newNet(t *testing.T, size int) *model.Network {
	t.Helper()
	net, err := model.New(model.Config{InputSize: size, HiddenSize: 6, Layers: 2, OutputSize: size, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	return net
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	v := vocab.Minimal()
	net := newNet(t, v.Size())
	path := Path(t.TempDir())

	if err := Save(path, net, v, Meta{Charset: "minimal", Epochs: 1, Iterations: 20, Score: 3.5}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cp, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cp.Vocab.String() != v.String() {
		t.Fatal("vocabulary changed across save/load")
	}
	if cp.Meta.Iterations != 20 || cp.Meta.Charset != "minimal" || cp.Meta.CreatedAt.IsZero() {
		t.Fatalf("unexpected meta %+v", cp.Meta)
	}
	if cp.Net.Config() != net.Config() {
		t.Fatalf("config mismatch: %+v vs %+v", cp.Net.Config(), net.Config())
	}
	for _, p := range net.Params() {
		q, err := cp.Net.Param(p.Name)
		if err != nil {
			t.Fatal(err)
		}
		for i := range p.Value.Data {
			if p.Value.Data[i] != q.Value.Data[i] {
				t.Fatalf("%s[%d]: %v != %v", p.Name, i, p.Value.Data[i], q.Value.Data[i])
			}
		}
	}

	in := []model.Batch{model.OneHot([]int{3}, v.Size())}
	_, a, _ := net.Step(net.NewState(1), in)
	_, b, _ := cp.Net.Step(cp.Net.NewState(1), in)
	for k := range a[0][0] {
		if a[0][0][k] != b[0][0][k] {
			t.Fatal("loaded network computes different outputs")
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestSaveRejectsMismatchedVocabulary(t *testing.T) {
	t.Parallel()
	v, _ := vocab.FromString("abc")
	if err := Save(Path(t.TempDir()), newNet(t, 4), v, Meta{}); !errors.Is(err, ErrVocabularyMismatch) {
		t.Fatalf("expected ErrVocabularyMismatch, got %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), DefaultFileName)); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func writeRaw(t *testing.T, info any, chars string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bad.mcf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	w, err := mcf.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(info)
	if err := w.WriteSection(mcf.SectionModelInfo, 1, raw); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSection(mcf.SectionVocabulary, 1, []byte(chars)); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteTensors([]mcf.Tensor{{Name: "x", Shape: []uint64{1}, Data: []float32{0}}}); err != nil {
		t.Fatal(err)
	}
	if err := w.Finalise(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidates(t *testing.T) {
	t.Parallel()
	cfg := model.Config{InputSize: 3, HiddenSize: 2, Layers: 1, OutputSize: 3}

	path := writeRaw(t, modelInfo{Format: "other", Config: cfg}, "abc")
	if _, err := Load(path); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}

	path = writeRaw(t, modelInfo{Format: Format, Config: cfg}, "abcd")
	if _, err := Load(path); !errors.Is(err, ErrVocabularyMismatch) {
		t.Fatalf("expected ErrVocabularyMismatch, got %v", err)
	}

	path = writeRaw(t, modelInfo{Format: Format, Config: cfg}, "abc")
	if _, err := Load(path); !errors.Is(err, mcf.ErrTensorNotFound) {
		t.Fatalf("expected ErrTensorNotFound, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	v := vocab.Minimal()
	path := Path(t.TempDir())
	if err := Save(path, newNet(t, v.Size()), v, Meta{Charset: "minimal"}); err != nil {
		t.Fatal(err)
	}
	d, err := Describe(path)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if d.Major != mcf.CurrentMajor || len(d.Sections) != 4 {
		t.Fatalf("unexpected description %+v", d)
	}
	if d.Sections[0].Type != "model_info" || d.Vocabulary != v.String() {
		t.Fatalf("unexpected sections %+v", d.Sections)
	}
	// 3 tensors per LSTM layer plus the output weights and bias.
	if len(d.Tensors) != 2*3+2 {
		t.Fatalf("expected 8 tensors, got %d", len(d.Tensors))
	}
}
