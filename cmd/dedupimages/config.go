package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML configuration. Command line flags override
// any value set here.
type fileConfig struct {
	SkipFilterCheck bool         `yaml:"skip_filter_check"`
	Rollback        *bool        `yaml:"rollback"`
	LogLevel        string       `yaml:"log_level"` // debug | info | warn | error
	Limits          limitsConfig `yaml:"limits"`
	Report          reportConfig `yaml:"report"`
	Serve           serveConfig  `yaml:"serve"`
}

type limitsConfig struct {
	MaxDecompressedSize int64         `yaml:"max_decompressed_size"`
	MaxDecodeTime       time.Duration `yaml:"max_decode_time"`
}

type reportConfig struct {
	Format string `yaml:"format"` // md | html
	Out    string `yaml:"out"`
}

type serveConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *fileConfig) applyDefaults() {
	if c.Rollback == nil {
		on := true
		c.Rollback = &on
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Limits.MaxDecompressedSize <= 0 {
		c.Limits.MaxDecompressedSize = 256 << 20
	}
	if c.Limits.MaxDecodeTime <= 0 {
		c.Limits.MaxDecodeTime = 30 * time.Second
	}
	if c.Serve.MaxBodyBytes <= 0 {
		c.Serve.MaxBodyBytes = 64 << 20
	}
}

func (c *fileConfig) validate() error {
	switch c.Report.Format {
	case "", "md", "html":
	default:
		return fmt.Errorf("unknown report format %q", c.Report.Format)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
