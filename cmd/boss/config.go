package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// config is the optional YAML file given with --config. Flags win over it.
type config struct {
	LogLevel         string `yaml:"log_level"`
	MaxDepth         int    `yaml:"max_depth"`
	CompressionLevel int    `yaml:"compression_level"`

	// Default formats for encode --from and decode --to.
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

func loadConfig(path string) (config, error) {
	cfg := config{From: "json", To: "json"}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
