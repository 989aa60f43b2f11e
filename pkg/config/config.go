// Package config provides YAML-based configuration loading with
// environment variable expansion and layered per-key merging.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration from a YAML file with environment variable
// expansion.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadLayered loads configuration from several YAML files merged
// per-key, later files overriding earlier ones. Files that do not
// exist are skipped, so callers can pass optional global and local
// paths unconditionally. The merged document is decoded into target
// on top of whatever defaults it already carries.
func LoadLayered[T any](target *T, filenames ...string) error {
	merged := map[string]any{}
	found := false

	for _, filename := range filenames {
		data, err := os.ReadFile(filename)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
		found = true

		expanded := os.ExpandEnv(string(data))
		layer := map[string]any{}
		if err := yaml.Unmarshal([]byte(expanded), &layer); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
		merged = Merge(merged, layer)
	}

	if found {
		remarshalled, err := yaml.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to merge config layers: %w", err)
		}
		if err := yaml.Unmarshal(remarshalled, target); err != nil {
			return fmt.Errorf("failed to apply merged config: %w", err)
		}
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// Merge deep-merges override into base per key and returns the result.
// Nested maps merge recursively; any other value in override replaces
// the base value. Neither input is modified.
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		overrideMap, overrideIsMap := asMap(v)
		baseMap, baseIsMap := asMap(out[k])
		if overrideIsMap && baseIsMap {
			out[k] = Merge(baseMap, overrideMap)
			continue
		}
		out[k] = v
	}
	return out
}

// asMap normalises the two map shapes yaml.v3 can produce.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// MustLoad loads configuration and panics on failure.
func MustLoad[T any](filename string, target *T) {
	if err := Load(filename, target); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
}
