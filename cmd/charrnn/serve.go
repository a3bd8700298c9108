package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/charrnn/internal/api"
	"github.com/samcharles93/charrnn/internal/checkpoint"
	"github.com/samcharles93/charrnn/internal/logger"
	"github.com/samcharles93/charrnn/internal/webui"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		maxLength   int
		maxSamples  int
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sampling API over HTTP and WebSocket",
		Flags: []cli.Flag{
			modelFlag(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.IntFlag{
				Name:        "max-length",
				Usage:       "largest length a request may ask for",
				Value:       api.DefaultLimits().MaxLength,
				Destination: &maxLength,
			},
			&cli.IntFlag{
				Name:        "max-samples",
				Usage:       "largest num_samples a request may ask for",
				Value:       api.DefaultLimits().MaxSamples,
				Destination: &maxSamples,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := LoadConfig()
			applyServeConfig(cmd, cfg, &addr)

			path, err := resolveModelPath(modelPath, cfg)
			if err != nil {
				return err
			}
			ck, err := checkpoint.Load(path)
			if err != nil {
				return err
			}

			limits := api.DefaultLimits()
			limits.MaxLength = maxLength
			limits.MaxSamples = maxSamples
			if cfg.Length != nil {
				limits.DefaultLength = *cfg.Length
			}
			if cfg.Samples != nil {
				limits.DefaultCount = *cfg.Samples
			}
			if cfg.Seed != nil {
				limits.DefaultSeed = *cfg.Seed
			}
			service := api.NewSampleService(ck.Net, ck.Vocab, limits)
			server := api.NewServer(service, log)

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			e.GET("/", echo.WrapHandler(webui.Handler()))
			log.Info("starting server", "address", addr, "model", path, "vocabulary", ck.Vocab.Size())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
