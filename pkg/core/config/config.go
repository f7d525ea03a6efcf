// Package config loads the extraction bundle (sections, label sets, integrity
// tolerance) and the runtime settings of the monitor.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reserve_monitor/pkg/core/extract"

	hjson "github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v2"
)

// ErrInvalidBundle marks a bundle that cannot be decoded or fails validation.
var ErrInvalidBundle = errors.New("invalid configuration bundle")

// Load reads a bundle from disk. The format follows the file extension:
// .yaml/.yml, .hjson, or .json (lenient: repaired when malformed).
func Load(path string) (extract.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Config{}, fmt.Errorf("read bundle %s: %w", path, err)
	}
	cfg, err := Parse(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil {
		return extract.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a bundle in the given format.
func Parse(data []byte, format string) (extract.Config, error) {
	var cfg extract.Config
	var err error

	switch format {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &cfg)
	case "hjson":
		err = hjson.Unmarshal(data, &cfg)
	case "json", "":
		cfg, err = decodeJSON(data)
	default:
		return extract.Config{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidBundle, format)
	}
	if err != nil {
		return extract.Config{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	if err := Validate(cfg); err != nil {
		return extract.Config{}, err
	}
	return cfg, nil
}

// Validate checks a bundle and wraps any problem in ErrInvalidBundle.
func Validate(cfg extract.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if _, err := extract.NewEngine(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return nil
}

// Bundle returns the bundle named by the runtime settings, or the built-in
// default when none is configured.
func Bundle(rt Runtime) (extract.Config, error) {
	if rt.ConfigPath == "" {
		return Default(), nil
	}
	return Load(rt.ConfigPath)
}
