package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the charrnn configuration file (~/.config/charrnn/config.yaml).
// All fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	DataDir string `yaml:"data_dir"`

	// Training
	Charset       string   `yaml:"charset"`
	HiddenSize    *int     `yaml:"hidden_size"`
	Layers        *int     `yaml:"layers"`
	MiniBatchSize *int     `yaml:"mini_batch_size"`
	ExampleLength *int     `yaml:"example_length"`
	TBPTTLength   *int     `yaml:"tbptt_length"`
	Epochs        *int     `yaml:"epochs"`
	LearningRate  *float64 `yaml:"learning_rate"`
	Seed          *int64   `yaml:"seed"`

	// Sampling
	Samples     *int     `yaml:"samples"`
	Length      *int     `yaml:"length"`
	Temperature *float64 `yaml:"temperature"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "charrnn", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return Config{}
	}
	return cfg
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyTrainConfig applies config file defaults to train command variables
// when the corresponding CLI flag was not explicitly set.
func applyTrainConfig(c *cli.Command, cfg Config, opts *trainOptions) {
	if cfg.Charset != "" && !c.IsSet("charset") {
		opts.charset = cfg.Charset
	}
	setInt(c, "hidden", cfg.HiddenSize, &opts.hidden)
	setInt(c, "layers", cfg.Layers, &opts.layers)
	setInt(c, "batch", cfg.MiniBatchSize, &opts.batch)
	setInt(c, "example-length", cfg.ExampleLength, &opts.exampleLength)
	setInt(c, "tbptt", cfg.TBPTTLength, &opts.tbptt)
	setInt(c, "epochs", cfg.Epochs, &opts.epochs)
	if cfg.LearningRate != nil && !c.IsSet("lr") {
		opts.lr = *cfg.LearningRate
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		opts.seed = *cfg.Seed
	}
}

// applyGenerateConfig applies config file defaults to generate command variables.
func applyGenerateConfig(c *cli.Command, cfg Config, opts *generateOptions) {
	setInt(c, "samples", cfg.Samples, &opts.samples)
	setInt(c, "length", cfg.Length, &opts.length)
	if cfg.Temperature != nil && !c.IsSet("temperature") {
		opts.temperature = *cfg.Temperature
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		opts.seed = *cfg.Seed
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

func setInt(c *cli.Command, flag string, v *int, dst *int) {
	if v != nil && !c.IsSet(flag) {
		*dst = *v
	}
}
