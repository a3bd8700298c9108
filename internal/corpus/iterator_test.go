package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestIteratorCoversText(t *testing.T) {
	t.Parallel()
	// 41 kept characters: 10 examples of length 4 plus a trailing label.
	text := strings.Repeat("abcd", 10) + "e"
	it, err := NewCharacterIterator(strings.NewReader(text), IteratorConfig{MiniBatchSize: 3, ExampleLength: 4, Seed: 7})
	if err != nil {
		t.Fatalf("new iterator: %v", err)
	}
	if it.Len() != 41 || it.Examples() != 10 || it.Batches() != 4 {
		t.Fatalf("len=%d examples=%d batches=%d", it.Len(), it.Examples(), it.Batches())
	}
	if it.TotalOutcomes() != 77 || it.InputColumns() != 77 {
		t.Fatalf("unexpected widths %d/%d", it.TotalOutcomes(), it.InputColumns())
	}

	v := it.Vocabulary()
	var starts []int
	var sizes []int
	for it.HasNext() {
		ds, ok := it.Next()
		if !ok {
			t.Fatal("Next returned false while HasNext was true")
		}
		sizes = append(sizes, ds.Size())
		for s := range ds.Inputs {
			in, _ := v.Decode(ds.Inputs[s])
			lb, _ := v.Decode(ds.Labels[s])
			if len(in) != 4 || in[1:] != lb[:3] {
				t.Fatalf("labels are not inputs shifted by one: %q %q", in, lb)
			}
			starts = append(starts, strings.Index("abcd", in[:1]))
		}
	}
	if _, ok := it.Next(); ok {
		t.Fatal("Next after exhaustion must report false")
	}
	if want := []int{3, 3, 3, 1}; len(sizes) != 4 || sizes[3] != want[3] {
		t.Fatalf("batch sizes %v, want %v", sizes, want)
	}
	if len(starts) != 10 {
		t.Fatalf("visited %d examples, want 10", len(starts))
	}
}

func TestIteratorShuffleIsSeeded(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("the quick brown fox. ", 30)
	order := func(seed int64) []int {
		it, err := NewCharacterIterator(strings.NewReader(text), IteratorConfig{MiniBatchSize: 4, ExampleLength: 10, Seed: seed})
		if err != nil {
			t.Fatal(err)
		}
		return append([]int(nil), it.offsets...)
	}
	a, b := order(1), order(1)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", a, b)
		}
	}
	sorted := append([]int(nil), a...)
	sort.Ints(sorted)
	for i, off := range sorted {
		if off != i*10 {
			t.Fatalf("offsets are not a permutation of example starts: %v", sorted)
		}
	}
}

func TestIteratorResetRewinds(t *testing.T) {
	t.Parallel()
	it, err := NewCharacterIterator(strings.NewReader(strings.Repeat("xy", 50)), IteratorConfig{MiniBatchSize: 8, ExampleLength: 5, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for it.HasNext() {
		it.Next()
		n++
	}
	it.Reset()
	if !it.HasNext() {
		t.Fatal("Reset did not rewind")
	}
	m := 0
	for it.HasNext() {
		it.Next()
		m++
	}
	if n != m || n != it.Batches() {
		t.Fatalf("epochs differ: %d vs %d (batches %d)", n, m, it.Batches())
	}
}

func TestIteratorFiltersCharacters(t *testing.T) {
	t.Parallel()
	it, err := NewCharacterIterator(strings.NewReader("a~b€c\rd"), IteratorConfig{MiniBatchSize: 1, ExampleLength: 3})
	if err != nil {
		t.Fatal(err)
	}
	if it.Len() != 4 {
		t.Fatalf("expected 4 kept characters, got %d", it.Len())
	}
	ds, _ := it.Next()
	got, _ := it.Vocabulary().Decode(ds.Inputs[0])
	if got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestIteratorCustomCharSet(t *testing.T) {
	t.Parallel()
	it, err := NewCharacterIterator(strings.NewReader("ab ab ab"), IteratorConfig{MiniBatchSize: 1, ExampleLength: 2, CharSet: []rune("ab")})
	if err != nil {
		t.Fatal(err)
	}
	if it.TotalOutcomes() != 2 || it.Len() != 6 {
		t.Fatalf("outcomes=%d len=%d", it.TotalOutcomes(), it.Len())
	}
	if r := it.RandomCharacter(); r != 'a' && r != 'b' {
		t.Fatalf("random character %q outside the set", r)
	}
}

func TestIteratorErrors(t *testing.T) {
	t.Parallel()
	if _, err := NewCharacterIterator(strings.NewReader("abc"), IteratorConfig{MiniBatchSize: 1, ExampleLength: 3}); !errors.Is(err, ErrCorpusTooShort) {
		t.Fatalf("expected ErrCorpusTooShort, got %v", err)
	}
	if _, err := NewCharacterIterator(strings.NewReader("abcdef"), IteratorConfig{MiniBatchSize: 0, ExampleLength: 3}); err == nil {
		t.Fatal("expected error for zero minibatch size")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.txt"), IteratorConfig{MiniBatchSize: 1, ExampleLength: 1}); !errors.Is(err, ErrCorpusNotFound) {
		t.Fatalf("expected ErrCorpusNotFound, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte("To be, or not to be: that is the question.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	it, err := Open(path, IteratorConfig{MiniBatchSize: 2, ExampleLength: 8, Seed: 12345})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if it.Examples() != (it.Len()-1)/8 {
		t.Fatalf("examples %d for %d characters", it.Examples(), it.Len())
	}
}
