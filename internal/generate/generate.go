// Package generate turns a trained sequence model into text by sampling one
// character at a time and feeding each sampled character back as the next
// input.
//
// All samples of one call share the priming string and advance in lock-step:
// the model sees one batch row per sample and is stepped once per decoded
// character. Random draws are consumed step-major, sample-minor: at every
// step sample 0 draws first, then sample 1, and so on. No draws happen during
// priming, except the single draw that picks a random priming character when
// none is supplied.
package generate

import (
	"errors"
	"fmt"

	"github.com/samcharles93/charrnn/internal/logits"
	"github.com/samcharles93/charrnn/internal/model"
	"github.com/samcharles93/charrnn/internal/vocab"
)

var ErrInvalidOptions = errors.New("generate: invalid options")

// Model is the sequence model surface the generator drives. S is the
// model's recurrent state handle; the generator owns the handle it creates
// for the duration of one call and threads it through every Step.
type Model[S any] interface {
	// OutputSize is the width of every output distribution.
	OutputSize() int
	// NewState returns a cleared state for batch samples.
	NewState(batch int) S
	// Step advances the state by len(inputs) time steps and returns the
	// advanced state and one output batch per step.
	Step(state S, inputs []model.Batch) (S, []model.Batch, error)
}

// Source is the randomness consumed by sampling.
type Source interface {
	Float64() float64
}

// StepFunc observes the characters appended at decoding step (0-based), one
// per sample. A non-nil error stops generation and is returned by Generate.
type StepFunc func(step int, chars []rune) error

type Options struct {
	// Priming is the shared prefix. nil selects one random character from
	// the vocabulary; an empty string primes the model with a blank input.
	Priming *string
	// Steps is the number of characters to sample after the prefix.
	Steps int
	// Samples is the number of independent continuations.
	Samples int
	// Temperature reweights each distribution before sampling. 0 and 1 mean
	// sample from the model output as is.
	Temperature float64
	// Greedy picks the most likely character instead of sampling.
	Greedy bool
	// OnStep, if set, is called after every decoding step.
	OnStep StepFunc
}

// Priming returns a pointer to s for use in Options.
func Priming(s string) *string { return &s }

// sample is the per-continuation accumulator.
type sample struct {
	text []rune
	dist []float64
}

// Generate produces opts.Samples continuations of the priming string, each
// opts.Steps characters longer than the prefix.
//
// Every priming character is resolved against v before the model is touched,
// so an unknown character fails without creating or advancing any state.
// Model errors are returned wrapped but otherwise unchanged.
func Generate[S any](m Model[S], v vocab.Lookup, rng Source, opts Options) ([]string, error) {
	if opts.Steps < 0 {
		return nil, fmt.Errorf("%w: steps must be >= 0, got %d", ErrInvalidOptions, opts.Steps)
	}
	if opts.Samples < 1 {
		return nil, fmt.Errorf("%w: samples must be >= 1, got %d", ErrInvalidOptions, opts.Samples)
	}
	if m.OutputSize() != v.Size() {
		return nil, fmt.Errorf("%w: model output size %d != vocabulary size %d", ErrInvalidOptions, m.OutputSize(), v.Size())
	}

	var prefix []rune
	if opts.Priming == nil {
		prefix = []rune{v.RandomChar(rng)}
	} else {
		prefix = []rune(*opts.Priming)
	}
	primeIdx := make([]int, len(prefix))
	for i, r := range prefix {
		idx, err := v.IndexOf(r)
		if err != nil {
			return nil, err
		}
		primeIdx[i] = idx
	}
	// An empty prefix still needs one step to obtain a first distribution.
	if len(primeIdx) == 0 {
		primeIdx = []int{-1}
	}

	samples := make([]sample, opts.Samples)
	for s := range samples {
		samples[s].text = make([]rune, len(prefix), len(prefix)+opts.Steps)
		copy(samples[s].text, prefix)
		samples[s].dist = make([]float64, v.Size())
	}

	state := m.NewState(opts.Samples)

	priming := make([]model.Batch, len(primeIdx))
	for t, idx := range primeIdx {
		row := make([]int, opts.Samples)
		for s := range row {
			row[s] = idx
		}
		priming[t] = model.OneHot(row, v.Size())
	}
	state, out, err := m.Step(state, priming)
	if err != nil {
		return nil, fmt.Errorf("generate: priming: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("generate: priming returned no output")
	}
	last := out[len(out)-1]
	if len(last) != opts.Samples {
		return nil, fmt.Errorf("generate: priming returned %d rows, want %d", len(last), opts.Samples)
	}

	chars := make([]rune, opts.Samples)
	next := make([]int, opts.Samples)
	for step := range opts.Steps {
		for s := range samples {
			idx, err := samples[s].pick(last[s], rng, opts)
			if err != nil {
				return nil, fmt.Errorf("generate: step %d sample %d: %w", step, s, err)
			}
			r, err := v.CharAt(idx)
			if err != nil {
				return nil, err
			}
			samples[s].text = append(samples[s].text, r)
			chars[s] = r
			next[s] = idx
		}
		if opts.OnStep != nil {
			if err := opts.OnStep(step, append([]rune(nil), chars...)); err != nil {
				return nil, fmt.Errorf("generate: step %d: %w", step, err)
			}
		}
		state, out, err = m.Step(state, []model.Batch{model.OneHot(next, v.Size())})
		if err != nil {
			return nil, fmt.Errorf("generate: step %d: %w", step, err)
		}
		if len(out) != 1 || len(out[0]) != opts.Samples {
			return nil, fmt.Errorf("generate: step %d: model returned a malformed output batch", step)
		}
		last = out[0]
	}

	result := make([]string, opts.Samples)
	for s := range samples {
		result[s] = string(samples[s].text)
	}
	return result, nil
}

func (s *sample) pick(row []float32, rng Source, opts Options) (int, error) {
	if len(row) != len(s.dist) {
		return -1, fmt.Errorf("output width %d, want %d", len(row), len(s.dist))
	}
	for i, p := range row {
		s.dist[i] = float64(p)
	}
	if opts.Greedy {
		return logits.Argmax(s.dist), nil
	}
	logits.Temperature(s.dist, opts.Temperature)
	return logits.Sample(s.dist, rng)
}
