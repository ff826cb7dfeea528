package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a scenario file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported scenario file extension: %s", filepath.Ext(path))
	}
}

// Parse decodes a scenario, ignoring unknown fields.
func Parse(data []byte, format Format) (*Scenario, error) {
	return parse(data, format, false)
}

// ParseStrict decodes a scenario and rejects unknown fields.
func ParseStrict(data []byte, format Format) (*Scenario, error) {
	return parse(data, format, true)
}

func parse(data []byte, format Format, strict bool) (*Scenario, error) {
	var s Scenario
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format: %q", format)
	}
	return &s, nil
}

// LoadFile reads and decodes a scenario file. FileName is set to the file's base name.
func LoadFile(path string, strict bool) (*Scenario, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := parse(data, format, strict)
	if err != nil {
		return nil, err
	}
	s.FileName = filepath.Base(path)
	return s, nil
}
