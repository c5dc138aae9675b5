package dupconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPreset reads a YAML-encoded EngineOptions preset from disk,
// normalizing it before returning. A missing file yields the defaults,
// following internal/config.Load's fall-back-to-defaults behaviour in the
// teacher repo.
func LoadPreset(path string) (EngineOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultEngineOptions(), nil
		}
		return EngineOptions{}, fmt.Errorf("read preset: %w", err)
	}

	opts := DefaultEngineOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return EngineOptions{}, fmt.Errorf("parse preset: %w", err)
	}
	return opts.Normalize(), nil
}

// SavePreset writes opts to path as YAML.
func SavePreset(path string, opts EngineOptions) error {
	data, err := yaml.Marshal(opts.Normalize())
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return nil
}
