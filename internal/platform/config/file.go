// Package config resolves process settings from a static YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingKey is returned when a section or key is absent from the settings file.
var ErrMissingKey = errors.New("config: missing key")

// File holds the raw sectioned settings, e.g.
//
//	running:
//	  retry_times: 3
//	  workers: 5
type File struct {
	sections map[string]map[string]any
}

// Open reads and parses the settings file at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML settings. An empty document yields an empty File.
func Parse(data []byte) (*File, error) {
	sections := map[string]map[string]any{}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &File{sections: sections}, nil
}

func (f *File) lookup(section, key string) (any, error) {
	s, ok := f.sections[section]
	if !ok {
		return nil, fmt.Errorf("%w: section %q", ErrMissingKey, section)
	}
	v, ok := s[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingKey, section, key)
	}
	return v, nil
}

// String returns section.key as a string. Scalars are formatted.
func (f *File) String(section, key string) (string, error) {
	v, err := f.lookup(section, key)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case int, int64, float64, bool:
		return fmt.Sprint(t), nil
	default:
		return "", fmt.Errorf("config: %s.%s is not a scalar", section, key)
	}
}

// Int returns section.key as an int. Quoted numbers are accepted.
func (f *File) Int(section, key string) (int, error) {
	v, err := f.lookup(section, key)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("config: %s.%s: %w", section, key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("config: %s.%s is not an integer", section, key)
	}
}

// Duration returns section.key as a time.Duration. Bare integers are seconds.
func (f *File) Duration(section, key string) (time.Duration, error) {
	v, err := f.lookup(section, key)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int:
		return time.Duration(t) * time.Second, nil
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("config: %s.%s: %w", section, key, err)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("config: %s.%s is not a duration", section, key)
	}
}

// Strings returns section.key as a list. A comma separated string is split.
func (f *File) Strings(section, key string) ([]string, error) {
	v, err := f.lookup(section, key)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, strings.TrimSpace(fmt.Sprint(item)))
		}
		return out, nil
	case string:
		var out []string
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("config: %s.%s is not a list", section, key)
	}
}
