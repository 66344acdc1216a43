package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig     `yaml:"server"`
	Run         RunConfig        `yaml:"run"`
	Screenshots ScreenshotConfig `yaml:"screenshots"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	LogLevel    string           `yaml:"log_level"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type RunConfig struct {
	Dev           bool   `yaml:"dev"`
	XML           bool   `yaml:"xml"`
	XMLFile       string `yaml:"xml_file"`
	PrintTable    bool   `yaml:"print_table"`
	PrintMarkdown bool   `yaml:"print_markdown"`
}

type ScreenshotConfig struct {
	Dir string `yaml:"dir"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8082,
			Host: "0.0.0.0",
		},
		Run: RunConfig{
			XMLFile: "cavy_results.xml",
		},
		Screenshots: ScreenshotConfig{
			Dir: "screenshots",
		},
		LogLevel: "info",
	}
}

// Load reads the yaml file at path on top of the defaults. When optional is
// true a missing file yields the defaults instead of an error.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the coordinator cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Run.XML && c.Run.XMLFile == "" {
		return errors.New("run.xml_file must be set when run.xml is enabled")
	}
	return nil
}

// Addr returns the host:port the listener binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
