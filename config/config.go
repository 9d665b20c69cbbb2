// Package config loads the client configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	API     API     `yaml:"api"`
	Display Display `yaml:"display"`
	HTTP    HTTP    `yaml:"http"`
	Log     Log     `yaml:"log"`
}

type API struct {
	BaseURL   string `yaml:"base_url"`
	RankLimit int    `yaml:"rank_limit"`
}

type Display struct {
	PredictionPlaceholder string        `yaml:"prediction_placeholder"`
	TypingInterval        time.Duration `yaml:"typing_interval"`
	RadarInterval         time.Duration `yaml:"radar_interval"`
	PulseInterval         time.Duration `yaml:"pulse_interval"`
	BootDelay             time.Duration `yaml:"boot_delay"`
	HistorySize           int           `yaml:"history_size"`
}

type HTTP struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Log struct {
	Level      string `yaml:"level"`
	Encoding   string `yaml:"encoding"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path and fills unset values with defaults. An empty path
// yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var c Config
	if err := yaml.NewDecoder(file).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://127.0.0.1:5000"
	}
	if c.API.RankLimit <= 0 {
		c.API.RankLimit = 10
	}

	if c.Display.PredictionPlaceholder == "" {
		c.Display.PredictionPlaceholder = "0"
	}
	if c.Display.TypingInterval <= 0 {
		c.Display.TypingInterval = 14 * time.Millisecond
	}
	if c.Display.RadarInterval <= 0 {
		c.Display.RadarInterval = 30 * time.Millisecond
	}
	if c.Display.PulseInterval <= 0 {
		c.Display.PulseInterval = 2 * time.Second
	}
	// A negative boot delay starts the animations immediately.
	switch {
	case c.Display.BootDelay == 0:
		c.Display.BootDelay = 2500 * time.Millisecond
	case c.Display.BootDelay < 0:
		c.Display.BootDelay = 0
	}
	if c.Display.HistorySize <= 0 {
		c.Display.HistorySize = 20
	}

	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"*"}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 7
	}
}
