package entity

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Source represents one configured feed endpoint to poll.
// It is loaded once per run from the feeds document and never modified afterwards.
type Source struct {
	// Name is the unique key of the source. Health records are keyed by it.
	Name string `json:"name" yaml:"name"`

	// URL is the feed URL template. Params are merged into its query string.
	URL string `json:"url" yaml:"url"`

	// Source is the provider label shown alongside new items (e.g. "LinkedIn").
	Source string `json:"source" yaml:"source"`

	// Category is an optional free-form grouping label.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Params are optional query parameters appended to URL.
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`

	// Enabled defaults to true when absent from the feeds document.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Validate checks the required fields of a Source.
// It returns a *ValidationError describing the first invalid field.
func (s *Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return invalid("name", "required")
	}
	if strings.TrimSpace(s.Source) == "" {
		return invalid("source", "required")
	}
	if err := ValidateURL(s.URL); err != nil {
		return err
	}
	return validateParams(s.Params)
}

// FeedURL returns the request URL with Params merged into the query string.
// Keys are encoded in sorted order so the URL is stable across runs.
func (s *Source) FeedURL() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	if len(s.Params) == 0 {
		return u.String(), nil
	}

	q := u.Query()
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, s.Params[k])
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
