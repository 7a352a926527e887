// Package schema defines the target fields an import maps spreadsheet
// columns onto, and the named field sets available to the import service.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// FieldType controls how a matched column is normalized.
type FieldType string

const (
	TypeInput    FieldType = "input"
	TypeCheckbox FieldType = "checkbox"
	TypeSelect   FieldType = "select"
)

// Format is the expected data type of a field's values.
type Format string

const (
	FormatText    Format = "text"
	FormatNumeric Format = "numeric"
	FormatDate    Format = "date"
	FormatBool    Format = "bool"
)

// Rule names a field validation.
type Rule string

const (
	RuleRequired Rule = "required"
	RuleUnique   Rule = "unique"
	RuleRegex    Rule = "regex"
)

// Level is the severity of a validation failure. Only LevelError blocks a row.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Option is one choice of a select field.
type Option struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Validation is a single rule applied to a field's values.
type Validation struct {
	Rule         Rule   `yaml:"rule" json:"rule"`
	Value        string `yaml:"value,omitempty" json:"value,omitempty"` // Pattern for RuleRegex
	Flags        string `yaml:"flags,omitempty" json:"flags,omitempty"` // "i" for case-insensitive regex
	ErrorMessage string `yaml:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	Level        Level  `yaml:"level,omitempty" json:"level,omitempty"`
	AllowEmpty   bool   `yaml:"allowEmpty,omitempty" json:"allowEmpty,omitempty"` // RuleUnique ignores empty values

	re *regexp.Regexp
}

// Field is one target field of an import.
type Field struct {
	Key              string          `yaml:"key" json:"key"`
	Label            string          `yaml:"label" json:"label"`
	Description      string          `yaml:"description,omitempty" json:"description,omitempty"`
	AlternateMatches []string        `yaml:"alternateMatches,omitempty" json:"alternateMatches,omitempty"`
	Type             FieldType       `yaml:"type,omitempty" json:"type"`
	Format           Format          `yaml:"format,omitempty" json:"format"`
	Options          []Option        `yaml:"options,omitempty" json:"options,omitempty"`
	BooleanMatches   map[string]bool `yaml:"booleanMatches,omitempty" json:"booleanMatches,omitempty"`
	Validations      []Validation    `yaml:"validations,omitempty" json:"validations,omitempty"`
	Example          string          `yaml:"example,omitempty" json:"example,omitempty"`
}

// Set is a named collection of fields, one import target.
type Set struct {
	Name   string  `yaml:"name" json:"name"`
	Label  string  `yaml:"label,omitempty" json:"label,omitempty"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// ErrInvalidField is returned for field definitions that cannot be used.
var ErrInvalidField = errors.New("invalid field definition")

// Field returns the field with the given key.
func (s Set) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Keys returns field keys in definition order.
func (s Set) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Required reports whether the field has a required validation.
func (f Field) Required() bool {
	for _, v := range f.Validations {
		if v.Rule == RuleRequired {
			return true
		}
	}
	return false
}

// Option returns the option whose label or value equals s (case-insensitive).
func (f Field) Option(s string) (Option, bool) {
	s = strings.TrimSpace(s)
	for _, o := range f.Options {
		if strings.EqualFold(o.Label, s) || strings.EqualFold(o.Value, s) {
			return o, true
		}
	}
	return Option{}, false
}

// Regexp returns the compiled pattern of a regex validation.
func (v *Validation) Regexp() (*regexp.Regexp, error) {
	if v.re != nil {
		return v.re, nil
	}
	pattern := v.Value
	if strings.Contains(v.Flags, "i") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	v.re = re
	return re, nil
}

// normalize fills defaults and checks the set. Regex validations are
// compiled once here.
func (s *Set) normalize() error {
	if s.Name == "" {
		return fmt.Errorf("%w: set has no name", ErrInvalidField)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: set %q has no fields", ErrInvalidField, s.Name)
	}

	seen := make(map[string]bool, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Key == "" {
			return fmt.Errorf("%w: set %q field %d has no key", ErrInvalidField, s.Name, i)
		}
		if seen[f.Key] {
			return fmt.Errorf("%w: duplicate key %q in set %q", ErrInvalidField, f.Key, s.Name)
		}
		seen[f.Key] = true

		if f.Label == "" {
			f.Label = f.Key
		}
		if f.Type == "" {
			f.Type = TypeInput
		}
		if f.Format == "" {
			f.Format = FormatText
		}

		switch f.Type {
		case TypeInput, TypeCheckbox:
		case TypeSelect:
			if len(f.Options) == 0 {
				return fmt.Errorf("%w: select field %q has no options", ErrInvalidField, f.Key)
			}
		default:
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidField, f.Key, f.Type)
		}

		switch f.Format {
		case FormatText, FormatNumeric, FormatDate, FormatBool:
		default:
			return fmt.Errorf("%w: field %q has unknown format %q", ErrInvalidField, f.Key, f.Format)
		}

		for j := range f.Validations {
			v := &f.Validations[j]
			if v.Level == "" {
				v.Level = LevelError
			}
			switch v.Rule {
			case RuleRequired, RuleUnique:
			case RuleRegex:
				if _, err := v.Regexp(); err != nil {
					return fmt.Errorf("%w: field %q regex: %v", ErrInvalidField, f.Key, err)
				}
			default:
				return fmt.Errorf("%w: field %q has unknown rule %q", ErrInvalidField, f.Key, v.Rule)
			}
		}
	}
	return nil
}
