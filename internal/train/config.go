package train

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("train: invalid config")

// Config holds the network shape and training hyperparameters.
type Config struct {
	HiddenSize    int
	Layers        int
	MiniBatchSize int
	ExampleLength int
	// TBPTTLength is the number of characters per parameter update.
	TBPTTLength int
	Epochs      int

	LearningRate float64
	L2           float64
	RMSDecay     float64
	RMSEpsilon   float64
	// GradClip bounds every gradient element to [-GradClip, GradClip].
	// 0 disables clipping.
	GradClip float64

	// SampleEvery generates text every n minibatches. 0 disables sampling.
	SampleEvery        int
	SamplesToGenerate  int
	CharactersToSample int
	// Priming seeds the periodic samples. nil picks a random character.
	Priming *string
	// ScoreEvery logs the loss every n parameter updates.
	ScoreEvery int

	Seed int64
}

func DefaultConfig() Config {
	return Config{
		HiddenSize:         200,
		Layers:             2,
		MiniBatchSize:      32,
		ExampleLength:      1000,
		TBPTTLength:        50,
		Epochs:             1,
		LearningRate:       0.1,
		L2:                 0.001,
		RMSDecay:           0.95,
		RMSEpsilon:         1e-8,
		GradClip:           5,
		SampleEvery:        10,
		SamplesToGenerate:  4,
		CharactersToSample: 300,
		ScoreEvery:         50,
		Seed:               12345,
	}
}

func (c Config) Validate() error {
	switch {
	case c.HiddenSize <= 0 || c.Layers <= 0:
		return fmt.Errorf("%w: hidden size %d, layers %d", ErrInvalidConfig, c.HiddenSize, c.Layers)
	case c.MiniBatchSize <= 0 || c.ExampleLength <= 0:
		return fmt.Errorf("%w: minibatch size %d, example length %d", ErrInvalidConfig, c.MiniBatchSize, c.ExampleLength)
	case c.TBPTTLength <= 0:
		return fmt.Errorf("%w: tbptt length %d", ErrInvalidConfig, c.TBPTTLength)
	case c.Epochs < 0:
		return fmt.Errorf("%w: epochs %d", ErrInvalidConfig, c.Epochs)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate %v", ErrInvalidConfig, c.LearningRate)
	case c.RMSDecay <= 0 || c.RMSDecay >= 1:
		return fmt.Errorf("%w: rmsprop decay %v", ErrInvalidConfig, c.RMSDecay)
	case c.L2 < 0 || c.GradClip < 0 || c.RMSEpsilon < 0:
		return fmt.Errorf("%w: negative regularisation setting", ErrInvalidConfig)
	case c.SampleEvery > 0 && (c.SamplesToGenerate <= 0 || c.CharactersToSample < 0):
		return fmt.Errorf("%w: sampling needs at least one sample", ErrInvalidConfig)
	}
	return nil
}
