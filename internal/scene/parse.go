package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a scene from JSON (the submission wire format) or YAML.
func Parse(data []byte, format string) (*Scene, error) {
	var sc Scene
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("parse scene json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("parse scene yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported scene format %q", format)
	}
	return &sc, nil
}

// ReadFile reads a scene file, picking the format by extension.
func ReadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// WriteFile writes the scene as YAML.
func WriteFile(sc *Scene, path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
