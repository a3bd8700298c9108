// Package model implements the character-level sequence model: stacked LSTM
// layers followed by a softmax output layer.
//
// Recurrent state is never hidden inside the network. Callers create a State
// with NewState, pass it to Step and receive the advanced State back, so the
// weights stay read-only during inference and one Network can serve several
// independent generations.
package model

import (
	"errors"
	"fmt"
)

var (
	ErrShapeMismatch = errors.New("model: shape mismatch")
	ErrInvalidConfig = errors.New("model: invalid config")
	ErrParamNotFound = errors.New("model: parameter not found")
)

// Batch holds one vector per sample: one-hot inputs going into the network
// or probability distributions coming out of it.
type Batch [][]float32

// Config describes the network architecture.
type Config struct {
	InputSize  int   `json:"input_size" yaml:"input_size"`
	HiddenSize int   `json:"hidden_size" yaml:"hidden_size"`
	Layers     int   `json:"layers" yaml:"layers"`
	OutputSize int   `json:"output_size" yaml:"output_size"`
	Seed       int64 `json:"seed" yaml:"seed"`
}

func (c Config) Validate() error {
	switch {
	case c.InputSize <= 0:
		return fmt.Errorf("%w: input size %d", ErrInvalidConfig, c.InputSize)
	case c.HiddenSize <= 0:
		return fmt.Errorf("%w: hidden size %d", ErrInvalidConfig, c.HiddenSize)
	case c.Layers <= 0:
		return fmt.Errorf("%w: layers %d", ErrInvalidConfig, c.Layers)
	case c.OutputSize <= 0:
		return fmt.Errorf("%w: output size %d", ErrInvalidConfig, c.OutputSize)
	}
	return nil
}

// OneHot builds a batch of one-hot rows of width size, one per index.
// A negative index yields an all-zero row.
func OneHot(indices []int, size int) Batch {
	b := make(Batch, len(indices))
	for s, idx := range indices {
		row := make([]float32, size)
		if idx >= 0 {
			row[idx] = 1
		}
		b[s] = row
	}
	return b
}
