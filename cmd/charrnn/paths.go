package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/samcharles93/charrnn/internal/checkpoint"
)

const envDataDir = "CHARRNN_DATA_DIR"

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// resolveDataDir returns the storage directory, creating it if needed. The
// environment variable wins over the config file.
func resolveDataDir(cfg Config) (string, error) {
	dir := strings.TrimSpace(os.Getenv(envDataDir))
	if dir == "" {
		dir = strings.TrimSpace(cfg.DataDir)
	}
	if dir == "" {
		return "", cli.Exit(fmt.Sprintf("%s is not set\nusage: %s=/path/to/dir charrnn <command>", envDataDir, envDataDir), 1)
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// resolveModelPath prefers an explicit --model and otherwise falls back to
// the default artifact inside the data directory.
func resolveModelPath(modelFlag string, cfg Config) (string, error) {
	modelFlag = strings.TrimSpace(modelFlag)
	if modelFlag != "" {
		return filepath.Clean(modelFlag), nil
	}
	dir, err := resolveDataDir(cfg)
	if err != nil {
		return "", err
	}
	return checkpoint.Path(dir), nil
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
