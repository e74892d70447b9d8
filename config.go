package dmn

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the file form of the engine options.
//
//	memoize: true
//	max_depth: 64
//	strict_inputs: false
//	log_level: warn
type Config struct {
	Memoize      bool   `yaml:"memoize"`
	// Zero selects the default depth.
	MaxDepth     int    `yaml:"max_depth"`
	StrictInputs bool   `yaml:"strict_inputs"`
	LogLevel     string `yaml:"log_level"`
}

// DefaultConfig returns the configuration equivalent to NewEngine without options.
func DefaultConfig() Config {
	return Config{
		Memoize:  true,
		MaxDepth: defaultMaxDepth,
		LogLevel: "info",
	}
}

// ParseConfig parses a YAML configuration. Fields that are not set keep their
// default values; unknown fields are an error.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML configuration file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	var errs []string
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Sprintf("max_depth: must not be negative, got %d", c.MaxDepth))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, "log_level: "+err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Options returns the engine options for the configuration.
func (c Config) Options() []EngineOption {
	return []EngineOption{
		WithMemoization(c.Memoize),
		WithMaxDepth(c.MaxDepth),
		WithStrictInputs(c.StrictInputs),
	}
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}
