package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/milk9111/sceneexport/common"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "sceneexport.yaml"

// Policy decides what a batch export does after a file fails.
type Policy string

const (
	// Skip reports the failed file and keeps exporting the rest.
	Skip Policy = "skip"
	// Abort stops scheduling files after the first failure.
	Abort Policy = "abort"
)

type Config struct {
	Scale      float64       `yaml:"scale"`
	OutDir     string        `yaml:"out_dir"`
	OutExt     string        `yaml:"out_ext"`
	Workers    int           `yaml:"workers"`
	OnError    Policy        `yaml:"on_error"`
	KnownTypes []string      `yaml:"known_types"`
	Hooks      []string      `yaml:"hooks"`
	Debounce   time.Duration `yaml:"debounce"`
}

func Default() Config {
	return Config{
		Scale:    common.DefaultScale,
		OutDir:   "export",
		OutExt:   ".json",
		OnError:  Skip,
		Debounce: 100 * time.Millisecond,
	}
}

// Load reads a YAML config file over the defaults. When optional is set a
// missing file yields the defaults.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", c.Scale)
	}
	if c.OutDir == "" {
		return fmt.Errorf("out_dir must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	switch c.OnError {
	case Skip, Abort:
	default:
		return fmt.Errorf("on_error must be %q or %q, got %q", Skip, Abort, c.OnError)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	return nil
}
