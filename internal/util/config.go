package util

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds runtime settings and flags.
type Config struct {
	DSN       string `yaml:"dsn"`
	APIKey    string `yaml:"-"` // GEMINI_API_KEY only, never from file
	Theme     string `yaml:"theme"`
	DataDir   string `yaml:"data_dir"` // log + generated video output
	PollSecs  int    `yaml:"poll_secs"`
	MaxPolls  int    `yaml:"max_polls"`
}

// DefaultDataDir is where logs and generated videos land.
func DefaultDataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".habitquest")
}

// LoadFile merges an optional YAML config file into cfg. A missing file is
// fine; flags and env stay authoritative for anything they set.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	if cfg.DSN == "" {
		cfg.DSN = file.DSN
	}
	if cfg.Theme == "" {
		cfg.Theme = file.Theme
	}
	if cfg.DataDir == "" {
		cfg.DataDir = file.DataDir
	}
	if cfg.PollSecs == 0 {
		cfg.PollSecs = file.PollSecs
	}
	if cfg.MaxPolls == 0 {
		cfg.MaxPolls = file.MaxPolls
	}
	return nil
}
