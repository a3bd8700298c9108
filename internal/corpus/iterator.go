// Package corpus vectorizes a training text into minibatches of character
// indices for next-character prediction.
package corpus

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"

	"github.com/samcharles93/charrnn/internal/vocab"
)

var (
	ErrCorpusNotFound = errors.New("corpus: file not found")
	ErrCorpusTooShort = errors.New("corpus: text too short")
)

// IteratorConfig controls how the text is cut into examples.
type IteratorConfig struct {
	// MiniBatchSize is the number of examples per DataSet.
	MiniBatchSize int
	// ExampleLength is the number of characters in each example.
	ExampleLength int
	// CharSet lists the accepted characters in index order. Other characters
	// are dropped from the text. Empty means vocab.MinimalCharacterSet.
	CharSet []rune
	// Seed drives the example order.
	Seed int64
}

// DataSet is one minibatch. Inputs[s][t] is the character index at position
// t of example s and Labels[s][t] is the index of the character after it.
type DataSet struct {
	Inputs [][]int
	Labels [][]int
}

// Size returns the number of examples in the minibatch.
func (d *DataSet) Size() int { return len(d.Inputs) }

// CharacterIterator walks a text in shuffled, non-overlapping examples.
type CharacterIterator struct {
	cfg     IteratorConfig
	vocab   *vocab.Vocabulary
	text    []int
	offsets []int
	cursor  int
	rng     *rand.Rand
}

// NewCharacterIterator reads all of r and prepares the example offsets.
func NewCharacterIterator(r io.Reader, cfg IteratorConfig) (*CharacterIterator, error) {
	if cfg.MiniBatchSize <= 0 || cfg.ExampleLength <= 0 {
		return nil, fmt.Errorf("corpus: minibatch size and example length must be positive, got %d and %d", cfg.MiniBatchSize, cfg.ExampleLength)
	}
	chars := cfg.CharSet
	if len(chars) == 0 {
		chars = vocab.MinimalCharacterSet()
	}
	v, err := vocab.New(chars)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("corpus: read: %w", err)
	}
	text := make([]int, 0, len(raw))
	for _, c := range string(raw) {
		if idx, err := v.IndexOf(c); err == nil {
			text = append(text, idx)
		}
	}
	if len(text) < cfg.ExampleLength+1 {
		return nil, fmt.Errorf("%w: %d usable characters, need at least %d", ErrCorpusTooShort, len(text), cfg.ExampleLength+1)
	}

	it := &CharacterIterator{
		cfg:   cfg,
		vocab: v,
		text:  text,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}
	// Each example needs one extra character for its final label.
	n := (len(text) - 1) / cfg.ExampleLength
	it.offsets = make([]int, n)
	for i := range it.offsets {
		it.offsets[i] = i * cfg.ExampleLength
	}
	it.shuffle()
	return it, nil
}

// Open builds an iterator over the file at path.
func Open(path string, cfg IteratorConfig) (*CharacterIterator, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, path)
		}
		return nil, fmt.Errorf("corpus: open: %w", err)
	}
	defer f.Close()
	return NewCharacterIterator(f, cfg)
}

func (it *CharacterIterator) shuffle() {
	it.rng.Shuffle(len(it.offsets), func(i, j int) {
		it.offsets[i], it.offsets[j] = it.offsets[j], it.offsets[i]
	})
}

func (it *CharacterIterator) HasNext() bool { return it.cursor < len(it.offsets) }

// Next returns the next minibatch. The last minibatch of an epoch may hold
// fewer than MiniBatchSize examples.
func (it *CharacterIterator) Next() (*DataSet, bool) {
	if !it.HasNext() {
		return nil, false
	}
	n := min(it.cfg.MiniBatchSize, len(it.offsets)-it.cursor)
	ds := &DataSet{
		Inputs: make([][]int, n),
		Labels: make([][]int, n),
	}
	L := it.cfg.ExampleLength
	for s := range n {
		start := it.offsets[it.cursor+s]
		ds.Inputs[s] = append([]int(nil), it.text[start:start+L]...)
		ds.Labels[s] = append([]int(nil), it.text[start+1:start+L+1]...)
	}
	it.cursor += n
	return ds, true
}

// Reset rewinds the iterator and reshuffles the example order.
func (it *CharacterIterator) Reset() {
	it.cursor = 0
	it.shuffle()
}

func (it *CharacterIterator) Vocabulary() *vocab.Vocabulary { return it.vocab }

// TotalOutcomes is the width of the output distribution.
func (it *CharacterIterator) TotalOutcomes() int { return it.vocab.Size() }

// InputColumns is the width of a one-hot input.
func (it *CharacterIterator) InputColumns() int { return it.vocab.Size() }

// RandomCharacter draws a uniformly random character of the accepted set.
func (it *CharacterIterator) RandomCharacter() rune { return it.vocab.RandomChar(it.rng) }

// Len is the number of characters kept after filtering.
func (it *CharacterIterator) Len() int { return len(it.text) }

// Examples is the number of examples per epoch.
func (it *CharacterIterator) Examples() int { return len(it.offsets) }

// Batches is the number of minibatches per epoch.
func (it *CharacterIterator) Batches() int {
	return (len(it.offsets) + it.cfg.MiniBatchSize - 1) / it.cfg.MiniBatchSize
}
