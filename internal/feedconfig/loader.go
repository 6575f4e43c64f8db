// Package feedconfig loads the feeds document: the list of sources to poll.
//
// The document is JSON of the form {"feeds": [...]}. Files ending in .yaml or .yml are
// decoded as YAML with the same shape. Loading is all-or-nothing: a missing file, a
// decode error or any invalid entry yields zero sources and an error wrapping
// ErrConfigUnavailable.
package feedconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"feedwatch/internal/domain/entity"
)

// ErrConfigUnavailable indicates that no usable source list could be produced.
var ErrConfigUnavailable = errors.New("feeds configuration unavailable")

// document is the on-disk shape of the feeds file.
type document struct {
	Feeds []rawSource `json:"feeds" yaml:"feeds"`
}

// rawSource mirrors entity.Source with a tri-state Enabled so an absent flag
// can default to true. Param values may be any scalar.
type rawSource struct {
	Name     string         `json:"name" yaml:"name"`
	URL      string         `json:"url" yaml:"url"`
	Source   string         `json:"source" yaml:"source"`
	Category string         `json:"category" yaml:"category"`
	Params   map[string]any `json:"params" yaml:"params"`
	Enabled  *bool          `json:"enabled" yaml:"enabled"`
}

func (r rawSource) toEntity() (entity.Source, error) {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	params, err := paramStrings(r.Params)
	if err != nil {
		return entity.Source{}, err
	}
	return entity.Source{
		Name:     strings.TrimSpace(r.Name),
		URL:      strings.TrimSpace(r.URL),
		Source:   strings.TrimSpace(r.Source),
		Category: r.Category,
		Params:   params,
		Enabled:  enabled,
	}, nil
}

// paramStrings renders scalar query values as strings. Numbers keep their shortest
// decimal form, null becomes an empty value, and nested lists or objects are rejected.
func paramStrings(raw map[string]any) (map[string]string, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = v
		case bool:
			out[k] = strconv.FormatBool(v)
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			out[k] = strconv.Itoa(v)
		case int64:
			out[k] = strconv.FormatInt(v, 10)
		case uint64:
			out[k] = strconv.FormatUint(v, 10)
		default:
			return nil, &entity.ValidationError{
				Field:   "params",
				Message: fmt.Sprintf("value of %q must be a string, number or boolean", k),
			}
		}
	}
	return out, nil
}

// Load reads and validates the feeds document at path.
func Load(path string) ([]entity.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfigUnavailable, path, err)
	}
	return Parse(data, isYAML(path))
}

// Parse decodes and validates a feeds document held in memory.
func Parse(data []byte, asYAML bool) ([]entity.Source, error) {
	var doc document
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrConfigUnavailable, err)
	}

	sources := make([]entity.Source, 0, len(doc.Feeds))
	names := make(map[string]int, len(doc.Feeds))
	for i, raw := range doc.Feeds {
		src, err := raw.toEntity()
		if err == nil {
			err = src.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: feeds[%d]: %w", ErrConfigUnavailable, i, err)
		}
		if prev, dup := names[src.Name]; dup {
			return nil, fmt.Errorf("%w: feeds[%d]: %w", ErrConfigUnavailable, i, &entity.ValidationError{
				Field:   "name",
				Message: fmt.Sprintf("duplicate name %q (first used by feeds[%d])", src.Name, prev),
			})
		}
		names[src.Name] = i
		sources = append(sources, src)
	}
	return sources, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
