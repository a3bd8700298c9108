// Package train fits a character model to a corpus with truncated
// backpropagation through time and RMSProp.
package train

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/samcharles93/charrnn/internal/corpus"
	"github.com/samcharles93/charrnn/internal/generate"
	"github.com/samcharles93/charrnn/internal/logger"
	"github.com/samcharles93/charrnn/internal/model"
)

// Result summarises a training run.
type Result struct {
	// Iterations counts parameter updates (one per TBPTT segment).
	Iterations  int
	Minibatches int
	LastScore   float64
}

// Trainer owns the network for the duration of Run.
type Trainer struct {
	Config Config
	Net    *model.Network
	Iter   *corpus.CharacterIterator
	Log    logger.Logger
	// OnSamples, if set, receives the periodic samples as well as the log.
	OnSamples func(minibatch int, samples []string)

	opt *RMSProp
	rng *rand.Rand
}

// NewNetwork builds a network sized for the iterator's vocabulary.
func NewNetwork(cfg Config, iter *corpus.CharacterIterator) (*model.Network, error) {
	return model.New(model.Config{
		InputSize:  iter.InputColumns(),
		HiddenSize: cfg.HiddenSize,
		Layers:     cfg.Layers,
		OutputSize: iter.TotalOutcomes(),
		Seed:       cfg.Seed,
	})
}

func New(net *model.Network, iter *corpus.CharacterIterator, cfg Config, log logger.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mc := net.Config()
	if mc.InputSize != iter.InputColumns() || mc.OutputSize != iter.TotalOutcomes() {
		return nil, fmt.Errorf("%w: network is %d->%d, corpus vocabulary has %d characters",
			ErrInvalidConfig, mc.InputSize, mc.OutputSize, iter.TotalOutcomes())
	}
	if log == nil {
		log = logger.Default()
	}
	return &Trainer{
		Config: cfg,
		Net:    net,
		Iter:   iter,
		Log:    log,
		opt:    NewRMSProp(net.Params(), cfg),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run trains for Config.Epochs epochs. Cancellation is checked between
// segments; the partially trained network stays usable.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	var res Result
	cfg := t.Config

	total := 0
	for i, n := range t.Net.LayerParams() {
		t.Log.Info("layer parameters", "layer", i, "params", n)
		total += n
	}
	t.Log.Info("network parameters", "total", total)
	t.Log.Info("training started",
		"characters", t.Iter.Len(),
		"vocabulary", t.Iter.TotalOutcomes(),
		"minibatches_per_epoch", t.Iter.Batches(),
		"epochs", cfg.Epochs,
	)

	start := time.Now()
	for epoch := range cfg.Epochs {
		t.Log.Info("epoch", "epoch", epoch)
		for t.Iter.HasNext() {
			ds, _ := t.Iter.Next()
			if err := t.fit(ctx, ds, &res); err != nil {
				return res, err
			}
			res.Minibatches++
			if cfg.SampleEvery > 0 && res.Minibatches%cfg.SampleEvery == 0 {
				t.Log.Info("completed minibatches",
					"minibatches", res.Minibatches,
					"size", fmt.Sprintf("%dx%d", cfg.MiniBatchSize, cfg.ExampleLength),
				)
				if err := t.sample(res.Minibatches); err != nil {
					return res, err
				}
			}
		}
		t.Iter.Reset()
	}
	t.Log.Info("training complete",
		"iterations", res.Iterations,
		"minibatches", res.Minibatches,
		"score", res.LastScore,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

// fit runs every TBPTT segment of one minibatch, carrying the recurrent
// state forward between segments.
func (t *Trainer) fit(ctx context.Context, ds *corpus.DataSet, res *Result) error {
	B := ds.Size()
	T := len(ds.Inputs[0])
	state := t.Net.NewState(B)
	inputs := make([][]int, B)
	labels := make([][]int, B)
	for lo := 0; lo < T; lo += t.Config.TBPTTLength {
		if err := ctx.Err(); err != nil {
			return err
		}
		hi := min(lo+t.Config.TBPTTLength, T)
		for s := range B {
			inputs[s] = ds.Inputs[s][lo:hi]
			labels[s] = ds.Labels[s][lo:hi]
		}
		loss, next, err := t.Net.Gradient(state, inputs, labels)
		if err != nil {
			return fmt.Errorf("train: iteration %d: %w", res.Iterations, err)
		}
		t.opt.Step()
		state = next
		res.Iterations++
		res.LastScore = loss
		if t.Config.ScoreEvery > 0 && res.Iterations%t.Config.ScoreEvery == 0 {
			t.Log.Info("score", "iteration", res.Iterations, "score", loss)
		}
	}
	return nil
}

func (t *Trainer) sample(minibatch int) error {
	priming := ""
	if t.Config.Priming != nil {
		priming = *t.Config.Priming
	}
	t.Log.Info("sampling characters from network", "priming", priming)
	out, err := generate.Generate[*model.State](t.Net, t.Iter.Vocabulary(), t.rng, generate.Options{
		Priming: t.Config.Priming,
		Steps:   t.Config.CharactersToSample,
		Samples: t.Config.SamplesToGenerate,
	})
	if err != nil {
		return fmt.Errorf("train: sample: %w", err)
	}
	for i, s := range out {
		t.Log.Info("sample", "index", i, "text", s)
	}
	if t.OnSamples != nil {
		t.OnSamples(minibatch, out)
	}
	return nil
}
