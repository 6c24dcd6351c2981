package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/trajclip/internal/scene"
)

// ReadEnvironments loads the HDRI metadata file: a map from HDRI name to
// its description.
func ReadEnvironments(path string) (map[string]scene.Environment, error) {
	var raw map[string]scene.Environment
	if err := readYAMLFile(path, &raw); err != nil {
		return nil, fmt.Errorf("environment metadata: %w", err)
	}
	for name, env := range raw {
		env.Name = name
		raw[name] = env
	}
	return raw, nil
}

// ReadAssets loads the asset metadata file: a map from asset name to class
// and description.
func ReadAssets(path string) (map[string]scene.Asset, error) {
	var raw map[string]scene.Asset
	if err := readYAMLFile(path, &raw); err != nil {
		return nil, fmt.Errorf("asset metadata: %w", err)
	}
	for name, a := range raw {
		a.Name = name
		if a.Class == "" {
			a.Class = name
		}
		raw[name] = a
	}
	return raw, nil
}

func readYAMLFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
