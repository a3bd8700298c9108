package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/charrnn/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			_, _ = fmt.Fprintln(os.Stderr, msg)
		}
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "charrnn",
		Usage: "Train and sample a character-level LSTM text generator",
		Flags: loggingFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg := LoadConfig()
			applyLoggingConfig(cmd, cfg)
			level := logLevel
			if debug {
				level = "debug"
			}
			log, err := logger.Setup(os.Stderr, logFormat, level)
			if err != nil {
				return ctx, cli.Exit(err.Error(), 1)
			}
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_ = cli.ShowAppHelp(cmd)
			if cmd.Args().Present() {
				return cli.Exit(fmt.Sprintf("unknown command %q", cmd.Args().First()), 1)
			}
			return cli.Exit("a command is required", 1)
		},
		Commands: []*cli.Command{
			trainCmd(),
			generateCmd(),
			serveCmd(),
			inspectCmd(),
			versionCmd(),
		},
	}
}
