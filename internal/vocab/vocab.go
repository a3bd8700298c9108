// Package vocab maps a fixed alphabet of accepted characters to dense class
// indices and back.
package vocab

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCharacter = errors.New("vocab: unknown character")
	ErrIndexOutOfRange  = errors.New("vocab: index out of range")
	ErrEmpty            = errors.New("vocab: empty character set")
	ErrDuplicate        = errors.New("vocab: duplicate character")
)

// UnknownCharacterError reports a character outside the accepted set.
type UnknownCharacterError struct {
	Char rune
}

func (e *UnknownCharacterError) Error() string {
	return fmt.Sprintf("vocab: unknown character %q", e.Char)
}

func (e *UnknownCharacterError) Unwrap() error { return ErrUnknownCharacter }

// IndexOutOfRangeError reports a class index outside [0, Size).
type IndexOutOfRangeError struct {
	Index int
	Size  int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("vocab: index %d out of range [0, %d)", e.Index, e.Size)
}

func (e *IndexOutOfRangeError) Unwrap() error { return ErrIndexOutOfRange }

// Source is the randomness consumed by RandomChar. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Lookup is the read-only mapping surface the generator depends on.
type Lookup interface {
	IndexOf(r rune) (int, error)
	CharAt(i int) (rune, error)
	Size() int
	RandomChar(rng Source) rune
}

// Vocabulary is an immutable bijection between characters and indices.
// Index assignment follows the order of the characters passed to New.
type Vocabulary struct {
	chars []rune
	index map[rune]int
}

// New builds a vocabulary from an ordered character set.
func New(chars []rune) (*Vocabulary, error) {
	if len(chars) == 0 {
		return nil, ErrEmpty
	}
	v := &Vocabulary{
		chars: append([]rune(nil), chars...),
		index: make(map[rune]int, len(chars)),
	}
	for i, r := range v.chars {
		if _, ok := v.index[r]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, r)
		}
		v.index[r] = i
	}
	return v, nil
}

// FromString builds a vocabulary from the characters of s, in order.
func FromString(s string) (*Vocabulary, error) {
	return New([]rune(s))
}

func (v *Vocabulary) Size() int { return len(v.chars) }

func (v *Vocabulary) IndexOf(r rune) (int, error) {
	i, ok := v.index[r]
	if !ok {
		return -1, &UnknownCharacterError{Char: r}
	}
	return i, nil
}

func (v *Vocabulary) CharAt(i int) (rune, error) {
	if i < 0 || i >= len(v.chars) {
		return 0, &IndexOutOfRangeError{Index: i, Size: len(v.chars)}
	}
	return v.chars[i], nil
}

func (v *Vocabulary) Contains(r rune) bool {
	_, ok := v.index[r]
	return ok
}

// RandomChar draws a character uniformly from the accepted set.
func (v *Vocabulary) RandomChar(rng Source) rune {
	i := int(rng.Float64() * float64(len(v.chars)))
	// Float64 is in [0,1) but guard against sources that return 1.
	if i >= len(v.chars) {
		i = len(v.chars) - 1
	}
	return v.chars[i]
}

// Chars returns a copy of the ordered character set.
func (v *Vocabulary) Chars() []rune {
	return append([]rune(nil), v.chars...)
}

// String returns the ordered character set as a string.
func (v *Vocabulary) String() string {
	return string(v.chars)
}

// Encode maps every character of s to its index.
func (v *Vocabulary) Encode(s string) ([]int, error) {
	ids := make([]int, 0, len(s))
	for _, r := range s {
		id, err := v.IndexOf(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Decode maps indices back to text.
func (v *Vocabulary) Decode(ids []int) (string, error) {
	var b strings.Builder
	b.Grow(len(ids))
	for _, id := range ids {
		r, err := v.CharAt(id)
		if err != nil {
			return "", err
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// Filter drops every character of s that is not in the vocabulary.
func (v *Vocabulary) Filter(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if v.Contains(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
