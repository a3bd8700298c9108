package main

import "github.com/urfave/cli/v3"

var (
	modelPath string
	logLevel  string
	logFormat string
	debug     bool
)

func modelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "model",
		Aliases:     []string{"m"},
		Usage:       "path to .mcf model (default: $" + envDataDir + "/charrnn_model.mcf)",
		Destination: &modelPath,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
