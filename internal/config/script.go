package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/valentine/internal/story"
)

// LoadScript reads a YAML narrative script. Lines missing from the file keep
// their built-in text. An empty path returns the built-in script.
func LoadScript(path string) (story.Script, error) {
	if path == "" {
		return story.DefaultScript(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return story.Script{}, fmt.Errorf("read script: %w", err)
	}

	var script story.Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return story.Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}

	script = script.Merge(story.DefaultScript())
	if err := script.Validate(); err != nil {
		return story.Script{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return script, nil
}

// WriteScript saves a script as YAML, e.g. to give users a template to edit.
func WriteScript(script story.Script, path string) error {
	data, err := yaml.Marshal(script)
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}

	return nil
}
