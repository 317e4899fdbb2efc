package map2rec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// FormatForPath picks the document format from a file extension.
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// DecodeDocument parses a flat mapping in the given format.
func DecodeDocument(data []byte, format string) (map[string]any, error) {
	out := map[string]any{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json document: %w", err)
		}
		for k, v := range raw {
			if n, ok := v.(json.Number); ok {
				if i, err := n.Int64(); err == nil {
					out[k] = i
				} else {
					f, err := n.Float64()
					if err != nil {
						return nil, fmt.Errorf("decode json document: %s: %w", k, err)
					}
					out[k] = f
				}
				continue
			}
			out[k] = v
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode yaml document: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return out, nil
}

// LoadDocument reads a JSON or YAML flat mapping from path.
func LoadDocument(path string) (map[string]any, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeDocument(data, format)
}
