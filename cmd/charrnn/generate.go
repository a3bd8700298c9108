package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/charrnn/internal/checkpoint"
	"github.com/samcharles93/charrnn/internal/generate"
	"github.com/samcharles93/charrnn/internal/logger"
	"github.com/samcharles93/charrnn/internal/model"
)

type generateOptions struct {
	priming     string
	samples     int
	length      int
	seed        int64
	temperature float64
	greedy      bool
	interactive bool
}

func generateCmd() *cli.Command {
	opts := generateOptions{}

	return &cli.Command{
		Name:  "generate",
		Usage: "Sample text from a trained model",
		Flags: []cli.Flag{
			modelFlag(),
			&cli.StringFlag{Name: "priming", Aliases: []string{"p"}, Usage: "priming string (default: one random character)", Destination: &opts.priming},
			&cli.IntFlag{Name: "samples", Aliases: []string{"n"}, Usage: "number of samples", Value: 4, Destination: &opts.samples},
			&cli.IntFlag{Name: "length", Aliases: []string{"l"}, Usage: "characters to generate per sample", Value: 300, Destination: &opts.length},
			&cli.Int64Flag{Name: "seed", Usage: "random seed", Value: 12345, Destination: &opts.seed},
			&cli.Float64Flag{Name: "temperature", Aliases: []string{"temp"}, Usage: "sampling temperature", Value: 1.0, Destination: &opts.temperature},
			&cli.BoolFlag{Name: "greedy", Usage: "always pick the most likely character", Destination: &opts.greedy},
			&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "read priming strings from stdin, one per line", Destination: &opts.interactive},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := LoadConfig()
			applyGenerateConfig(cmd, cfg, &opts)

			path, err := resolveModelPath(modelPath, cfg)
			if err != nil {
				return err
			}
			ck, err := checkpoint.Load(path)
			if err != nil {
				return err
			}
			log.Debug("model loaded", "path", path, "vocabulary", ck.Vocab.Size(), "params", ck.Net.NumParams())

			w := cmd.Root().Writer
			rng := rand.New(rand.NewSource(opts.seed))
			if !opts.interactive {
				var priming *string
				if cmd.IsSet("priming") {
					priming = generate.Priming(opts.priming)
				}
				return sampleAndPrint(w, ck, rng, priming, opts)
			}
			return runInteractive(ctx, w, ck, rng, opts)
		},
	}
}

// sampleAndPrint renders every sample only after the whole batch succeeded.
func sampleAndPrint(w io.Writer, ck *checkpoint.Checkpoint, rng *rand.Rand, priming *string, opts generateOptions) error {
	samples, err := generate.Generate[*model.State](ck.Net, ck.Vocab, rng, generate.Options{
		Priming:     priming,
		Steps:       opts.length,
		Samples:     opts.samples,
		Temperature: opts.temperature,
		Greedy:      opts.greedy,
	})
	if err != nil {
		return err
	}
	var b strings.Builder
	for i, s := range samples {
		fmt.Fprintf(&b, "----- Sample %d -----\n%s\n\n", i, s)
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func runInteractive(ctx context.Context, w io.Writer, ck *checkpoint.Checkpoint, rng *rand.Rand, opts generateOptions) error {
	next, closeFn, err := lineReader()
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if err := sampleAndPrint(w, ck, rng, generate.Priming(line), opts); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// lineReader uses readline on a terminal and plain line reads otherwise.
func lineReader() (func() (string, error), func(), error) {
	if !stdinIsTTY() {
		sc := bufio.NewScanner(os.Stdin)
		return func() (string, error) {
			if sc.Scan() {
				return sc.Text(), nil
			}
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}, func() {}, nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mpriming>\033[0m ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, nil, err
	}
	return func() (string, error) {
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				if line == "" {
					return "", io.EOF
				}
				continue
			}
			return line, err
		}
	}, func() { _ = rl.Close() }, nil
}
