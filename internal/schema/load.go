package schema

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a field definitions file.
type File struct {
	Targets []Set `yaml:"targets"`
}

// LoadFile reads field sets from a YAML file.
func LoadFile(path string) ([]Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fields file: %w", err)
	}
	sets, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sets, nil
}

// Parse decodes and validates field sets. Unknown keys are rejected.
func Parse(data []byte) ([]Set, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fields: %w", err)
	}
	if len(f.Targets) == 0 {
		return nil, fmt.Errorf("%w: no targets defined", ErrInvalidField)
	}

	names := make(map[string]bool, len(f.Targets))
	for i := range f.Targets {
		if err := f.Targets[i].normalize(); err != nil {
			return nil, err
		}
		if names[f.Targets[i].Name] {
			return nil, fmt.Errorf("%w: duplicate target %q", ErrInvalidField, f.Targets[i].Name)
		}
		names[f.Targets[i].Name] = true
	}
	return f.Targets, nil
}
