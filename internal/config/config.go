package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/xorlab/internal/env"
	"github.com/RowanDark/xorlab/internal/keysize"
	"github.com/RowanDark/xorlab/internal/ranker"
	"github.com/RowanDark/xorlab/internal/xorerr"
)

const (
	homeDirName   = ".xorlab"
	homeFileName  = "config.yml"
	localFileName = "xorlab.yml"
)

// Config captures the xorlab configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	Candidates  int             `yaml:"candidates"`
	Placeholder string          `yaml:"placeholder"`
	KeySize     keysize.Options `yaml:"keysize"`
	HistoryPath string          `yaml:"history_path"`
	RecipesDir  string          `yaml:"recipes_dir"`
	EventLog    string          `yaml:"event_log"`
	MetricsFile string          `yaml:"metrics_file"`
	Trace       TraceConfig     `yaml:"trace"`
}

// TraceConfig controls span export. An empty File disables tracing.
type TraceConfig struct {
	File        string  `yaml:"file"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the built-in configuration. State lives under
// ~/.xorlab, or ./.xorlab when the home directory is unknown.
func Default() Config {
	base := homeDirName
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		base = filepath.Join(home, homeDirName)
	}
	return Config{
		Candidates:  ranker.DefaultCapacity,
		Placeholder: "_",
		KeySize:     keysize.Defaults(),
		HistoryPath: filepath.Join(base, "history.db"),
		RecipesDir:  filepath.Join(base, "recipes"),
		Trace:       TraceConfig{SampleRatio: 1},
	}
}

// Load resolves the configuration. Files are applied in order of increasing
// precedence:
//  1. ~/.xorlab/config.yml
//  2. ./xorlab.yml
//
// Environment variables prefixed with XORLAB_ have the highest precedence.
// The result is validated before it is returned.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the analysis packages cannot work with.
func (c Config) Validate() error {
	if c.Candidates < 1 || c.Candidates > 256 {
		return fmt.Errorf("%w: candidates must be between 1 and 256, got %d", xorerr.ErrInvalidArgument, c.Candidates)
	}
	if len(c.Placeholder) != 1 || c.Placeholder[0] < 0x20 || c.Placeholder[0] > 0x7e {
		return fmt.Errorf("%w: placeholder must be one printable character, got %q", xorerr.ErrInvalidArgument, c.Placeholder)
	}
	if err := c.KeySize.Validate(); err != nil {
		return fmt.Errorf("keysize: %w", err)
	}
	if c.Trace.SampleRatio < 0 || c.Trace.SampleRatio > 1 {
		return fmt.Errorf("%w: trace sample ratio must be within [0,1], got %v", xorerr.ErrInvalidArgument, c.Trace.SampleRatio)
	}
	return nil
}

// YAML renders the configuration in the file format Load reads.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		// No home directory means no home config.
		return nil
	}
	return loadFile(cfg, filepath.Join(home, homeDirName, homeFileName))
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadFile(cfg, filepath.Join(wd, localFileName))
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type fileConfig struct {
	Candidates  *int             `yaml:"candidates"`
	Placeholder *string          `yaml:"placeholder"`
	KeySize     *fileKeySize     `yaml:"keysize"`
	HistoryPath *string          `yaml:"history_path"`
	RecipesDir  *string          `yaml:"recipes_dir"`
	EventLog    *string          `yaml:"event_log"`
	MetricsFile *string          `yaml:"metrics_file"`
	Trace       *fileTraceConfig `yaml:"trace"`
}

type fileKeySize struct {
	MinSize   *int `yaml:"min_size"`
	MaxSize   *int `yaml:"max_size"`
	MinBlocks *int `yaml:"min_blocks"`
	MaxBlocks *int `yaml:"max_blocks"`
}

type fileTraceConfig struct {
	File        *string  `yaml:"file"`
	SampleRatio *float64 `yaml:"sample_ratio"`
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Candidates != nil {
		cfg.Candidates = *fc.Candidates
	}
	if fc.Placeholder != nil {
		cfg.Placeholder = *fc.Placeholder
	}
	if fc.HistoryPath != nil {
		cfg.HistoryPath = strings.TrimSpace(*fc.HistoryPath)
	}
	if fc.RecipesDir != nil {
		cfg.RecipesDir = strings.TrimSpace(*fc.RecipesDir)
	}
	if fc.EventLog != nil {
		cfg.EventLog = strings.TrimSpace(*fc.EventLog)
	}
	if fc.MetricsFile != nil {
		cfg.MetricsFile = strings.TrimSpace(*fc.MetricsFile)
	}
	if ks := fc.KeySize; ks != nil {
		setInt(&cfg.KeySize.MinSize, ks.MinSize)
		setInt(&cfg.KeySize.MaxSize, ks.MaxSize)
		setInt(&cfg.KeySize.MinBlocks, ks.MinBlocks)
		setInt(&cfg.KeySize.MaxBlocks, ks.MaxBlocks)
	}
	if tr := fc.Trace; tr != nil {
		if tr.File != nil {
			cfg.Trace.File = strings.TrimSpace(*tr.File)
		}
		if tr.SampleRatio != nil {
			cfg.Trace.SampleRatio = *tr.SampleRatio
		}
	}
	return nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"XORLAB_CANDIDATES", &cfg.Candidates},
		{"XORLAB_KEYSIZE_MIN", &cfg.KeySize.MinSize},
		{"XORLAB_KEYSIZE_MAX", &cfg.KeySize.MaxSize},
		{"XORLAB_BLOCKS_MIN", &cfg.KeySize.MinBlocks},
		{"XORLAB_BLOCKS_MAX", &cfg.KeySize.MaxBlocks},
	}
	for _, item := range ints {
		val, ok := env.Lookup(item.key)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", xorerr.ErrInvalidArgument, item.key, val)
		}
		*item.dst = parsed
	}

	if val, ok := env.Lookup("XORLAB_TRACE_SAMPLE_RATIO"); ok {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("%w: XORLAB_TRACE_SAMPLE_RATIO=%q is not a number", xorerr.ErrInvalidArgument, val)
		}
		cfg.Trace.SampleRatio = parsed
	}
	if val, ok := env.Lookup("XORLAB_PLACEHOLDER"); ok {
		cfg.Placeholder = val
	}
	if val, ok := env.Lookup("XORLAB_HISTORY", "XORLAB_DB"); ok {
		cfg.HistoryPath = val
	}
	if val, ok := env.Lookup("XORLAB_RECIPES"); ok {
		cfg.RecipesDir = val
	}
	if val, ok := env.Lookup("XORLAB_EVENT_LOG"); ok {
		cfg.EventLog = val
	}
	if val, ok := env.Lookup("XORLAB_METRICS_FILE"); ok {
		cfg.MetricsFile = val
	}
	if val, ok := env.Lookup("XORLAB_TRACE_FILE"); ok {
		cfg.Trace.File = val
	}
	return nil
}
