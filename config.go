package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the user-tunable surface, loaded from an optional YAML file and
// the environment. The API key is never compiled in: it comes from
// GEMINI_API_KEY or the config file, with the environment winning.
type Config struct {
	APIKey                string  `yaml:"api_key"`
	Model                 string  `yaml:"model"`
	Mode                  string  `yaml:"mode"`
	Device                string  `yaml:"device"`
	Format                string  `yaml:"format"`
	SegmentSeconds        int     `yaml:"segment_seconds"`
	SilenceThreshold      float64 `yaml:"silence_threshold"`
	SilenceTimeoutSeconds int     `yaml:"silence_timeout_seconds"`
	MaxRetries            int     `yaml:"max_retries"`
	InitialDelayMS        int     `yaml:"initial_delay_ms"`
}

func DefaultConfig() Config {
	return Config{
		Model:                 "gemini-2.5-flash-preview-05-20",
		Mode:                  "continuous",
		Format:                "flac",
		SegmentSeconds:        15,
		SilenceThreshold:      0.01,
		SilenceTimeoutSeconds: 15,
		MaxRetries:            5,
		InitialDelayMS:        1000,
	}
}

// LoadConfig merges defaults, the YAML file at path (if any) and the
// environment. An explicitly given path must exist; an empty path skips the
// file entirely.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.APIKey == "" {
		return errors.New("missing API key: set GEMINI_API_KEY or api_key in the config file")
	}
	switch c.Format {
	case "flac", "wav":
	default:
		return fmt.Errorf("unknown format %q (want flac or wav)", c.Format)
	}
	switch c.Mode {
	case "continuous", "single-shot":
	default:
		return fmt.Errorf("unknown mode %q (want continuous or single-shot)", c.Mode)
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("segment_seconds must be positive, got %d", c.SegmentSeconds)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got %d", c.MaxRetries)
	}
	return nil
}

func (c Config) sessionMode() SessionMode {
	if c.Mode == "single-shot" {
		return ModeSingleShot
	}
	return ModeContinuous
}

// SessionConfig translates the file-level tunables into session terms.
func (c Config) SessionConfig() SessionConfig {
	return SessionConfig{
		Mode:             c.sessionMode(),
		SegmentDuration:  time.Duration(c.SegmentSeconds) * time.Second,
		Format:           c.Format,
		SilenceThreshold: c.SilenceThreshold,
		SilenceTimeout:   time.Duration(c.SilenceTimeoutSeconds) * time.Second,
	}
}
