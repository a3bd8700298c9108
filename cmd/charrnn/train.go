package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/charrnn/internal/checkpoint"
	"github.com/samcharles93/charrnn/internal/corpus"
	"github.com/samcharles93/charrnn/internal/logger"
	"github.com/samcharles93/charrnn/internal/train"
	"github.com/samcharles93/charrnn/internal/version"
	"github.com/samcharles93/charrnn/internal/vocab"
)

type trainOptions struct {
	text          string
	charset       string
	hidden        int
	layers        int
	batch         int
	exampleLength int
	tbptt         int
	epochs        int
	lr            float64
	seed          int64
	sampleEvery   int
	priming       string
}

func (o trainOptions) config() train.Config {
	cfg := train.DefaultConfig()
	cfg.HiddenSize = o.hidden
	cfg.Layers = o.layers
	cfg.MiniBatchSize = o.batch
	cfg.ExampleLength = o.exampleLength
	cfg.TBPTTLength = o.tbptt
	cfg.Epochs = o.epochs
	cfg.LearningRate = o.lr
	cfg.Seed = o.seed
	cfg.SampleEvery = o.sampleEvery
	if o.priming != "" {
		cfg.Priming = &o.priming
	}
	return cfg
}

func trainCmd() *cli.Command {
	def := train.DefaultConfig()
	opts := trainOptions{}

	return &cli.Command{
		Name:  "train",
		Usage: "Train a model on a text file and save it to the data directory",
		Flags: []cli.Flag{
			modelFlag(),
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "training text file", Required: true, Destination: &opts.text},
			&cli.StringFlag{Name: "charset", Usage: "character set (minimal, default)", Value: "minimal", Destination: &opts.charset},
			&cli.IntFlag{Name: "hidden", Usage: "LSTM units per layer", Value: def.HiddenSize, Destination: &opts.hidden},
			&cli.IntFlag{Name: "layers", Usage: "number of LSTM layers", Value: def.Layers, Destination: &opts.layers},
			&cli.IntFlag{Name: "batch", Usage: "examples per minibatch", Value: def.MiniBatchSize, Destination: &opts.batch},
			&cli.IntFlag{Name: "example-length", Usage: "characters per training example", Value: def.ExampleLength, Destination: &opts.exampleLength},
			&cli.IntFlag{Name: "tbptt", Usage: "truncated BPTT segment length", Value: def.TBPTTLength, Destination: &opts.tbptt},
			&cli.IntFlag{Name: "epochs", Usage: "passes over the corpus", Value: def.Epochs, Destination: &opts.epochs},
			&cli.Float64Flag{Name: "lr", Usage: "RMSProp learning rate", Value: def.LearningRate, Destination: &opts.lr},
			&cli.Int64Flag{Name: "seed", Usage: "random seed", Value: def.Seed, Destination: &opts.seed},
			&cli.IntFlag{Name: "sample-every", Usage: "log samples every n minibatches (0 disables)", Value: def.SampleEvery, Destination: &opts.sampleEvery},
			&cli.StringFlag{Name: "priming", Usage: "priming string for periodic samples (default: random character)", Destination: &opts.priming},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := LoadConfig()
			applyTrainConfig(cmd, cfg, &opts)

			out, err := resolveModelPath(modelPath, cfg)
			if err != nil {
				return err
			}
			chars, err := vocab.CharacterSet(strings.ToLower(opts.charset))
			if err != nil {
				return err
			}
			tc := opts.config()
			if err := tc.Validate(); err != nil {
				return err
			}

			iter, err := corpus.Open(opts.text, corpus.IteratorConfig{
				MiniBatchSize: tc.MiniBatchSize,
				ExampleLength: tc.ExampleLength,
				CharSet:       chars,
				Seed:          tc.Seed,
			})
			if err != nil {
				return err
			}
			if opts.priming != "" {
				for _, r := range opts.priming {
					if !iter.Vocabulary().Contains(r) {
						return fmt.Errorf("priming: %w", &vocab.UnknownCharacterError{Char: r})
					}
				}
			}
			log.Info("loaded corpus", "path", opts.text, "characters", iter.Len(), "charset", strings.ToLower(opts.charset))

			net, err := train.NewNetwork(tc, iter)
			if err != nil {
				return err
			}
			trainer, err := train.New(net, iter, tc, log)
			if err != nil {
				return err
			}
			res, err := trainer.Run(ctx)
			if err != nil {
				return fmt.Errorf("train: %w", err)
			}

			meta := checkpoint.Meta{
				Charset:    strings.ToLower(opts.charset),
				Epochs:     tc.Epochs,
				Iterations: res.Iterations,
				Score:      res.LastScore,
				Version:    version.String(),
			}
			if err := checkpoint.Save(out, net, iter.Vocabulary(), meta); err != nil {
				return err
			}
			log.Info("model saved", "path", out, "iterations", res.Iterations, "score", res.LastScore)
			return nil
		},
	}
}
