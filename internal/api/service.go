package api

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/samcharles93/charrnn/internal/generate"
	"github.com/samcharles93/charrnn/internal/model"
	"github.com/samcharles93/charrnn/internal/vocab"
)

// Limits bound the work a single request may ask for.
type Limits struct {
	MaxLength     int
	MaxSamples    int
	DefaultLength int
	DefaultCount  int
	DefaultSeed   int64
}

func DefaultLimits() Limits {
	return Limits{
		MaxLength:     5000,
		MaxSamples:    32,
		DefaultLength: 300,
		DefaultCount:  4,
		DefaultSeed:   12345,
	}
}

// SampleService runs generation requests against one loaded network. The
// network is only read, so concurrent requests are safe: each call creates
// its own recurrent state.
type SampleService struct {
	net    *model.Network
	vocab  *vocab.Vocabulary
	limits Limits
}

func NewSampleService(net *model.Network, v *vocab.Vocabulary, limits Limits) *SampleService {
	def := DefaultLimits()
	if limits.MaxLength <= 0 {
		limits.MaxLength = def.MaxLength
	}
	if limits.MaxSamples <= 0 {
		limits.MaxSamples = def.MaxSamples
	}
	if limits.DefaultLength <= 0 {
		limits.DefaultLength = def.DefaultLength
	}
	if limits.DefaultCount <= 0 {
		limits.DefaultCount = def.DefaultCount
	}
	// A request that omits length or num_samples must never exceed the caps.
	limits.DefaultLength = min(limits.DefaultLength, limits.MaxLength)
	limits.DefaultCount = min(limits.DefaultCount, limits.MaxSamples)
	return &SampleService{net: net, vocab: v, limits: limits}
}

func (s *SampleService) Vocabulary() *vocab.Vocabulary {
	return s.vocab
}

// StepFunc receives the characters chosen at one decoding step.
type StepFunc func(step int, chars []string) error

// Generate validates req, samples, and returns the finished response. The
// context is checked between decoding steps.
func (s *SampleService) Generate(ctx context.Context, req *SamplesRequest, onStep StepFunc) (*SamplesResponse, error) {
	length := s.limits.DefaultLength
	if req.Length != nil {
		length = *req.Length
	}
	if length < 0 || length > s.limits.MaxLength {
		return nil, newInvalidRequest("length", fmt.Sprintf("length must be in [0, %d]", s.limits.MaxLength))
	}
	count := s.limits.DefaultCount
	if req.NumSamples != nil {
		count = *req.NumSamples
	}
	if count < 1 || count > s.limits.MaxSamples {
		return nil, newInvalidRequest("num_samples", fmt.Sprintf("num_samples must be in [1, %d]", s.limits.MaxSamples))
	}
	temperature := 1.0
	if req.Temperature != nil {
		temperature = *req.Temperature
		if temperature <= 0 {
			return nil, newInvalidRequest("temperature", "temperature must be > 0")
		}
	}
	seed := s.limits.DefaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	opts := generate.Options{
		Priming:     req.Priming,
		Steps:       length,
		Samples:     count,
		Temperature: temperature,
		Greedy:      req.Greedy,
		OnStep: func(step int, chars []rune) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if onStep == nil {
				return nil
			}
			out := make([]string, len(chars))
			for i, r := range chars {
				out[i] = string(r)
			}
			return onStep(step, out)
		},
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	samples, err := generate.Generate[*model.State](s.net, s.vocab, rng, opts)
	if err != nil {
		return nil, err
	}
	return &SamplesResponse{
		ID:      newSampleID(),
		Object:  "samples",
		Created: timeNow().Unix(),
		Priming: req.Priming,
		Length:  length,
		Seed:    seed,
		Samples: samples,
	}, nil
}

var timeNow = func() time.Time {
	return time.Now()
}
