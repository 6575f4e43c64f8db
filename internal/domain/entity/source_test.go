package entity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "valid https URL", url: "https://example.com/feed", wantErr: false},
		{name: "valid http URL", url: "http://example.com/feed", wantErr: false},
		{name: "valid URL with port", url: "https://example.com:8080/feed", wantErr: false},
		{name: "loopback is allowed", url: "http://127.0.0.1:8080/rss", wantErr: false},
		{name: "empty URL", url: "", wantErr: true},
		{name: "relative URL", url: "/jobs/feed.rss", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.com/feed", wantErr: true},
		{name: "missing host", url: "https:///feed", wantErr: true},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", maxURLLength), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSource_Validate(t *testing.T) {
	valid := Source{Name: "Go Jobs", URL: "https://example.com/feed.rss", Source: "Example", Enabled: true}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		src   Source
		field string
	}{
		{name: "missing name", src: Source{URL: valid.URL, Source: "Example"}, field: "name"},
		{name: "blank name", src: Source{Name: "  ", URL: valid.URL, Source: "Example"}, field: "name"},
		{name: "missing source", src: Source{Name: "a", URL: valid.URL}, field: "source"},
		{name: "bad url", src: Source{Name: "a", URL: "not a url", Source: "Example"}, field: "url"},
		{name: "blank param name", src: Source{Name: "a", URL: valid.URL, Source: "Example", Params: map[string]string{" ": "x"}}, field: "params"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.src.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSource_FeedURL(t *testing.T) {
	t.Run("no params", func(t *testing.T) {
		src := Source{URL: "https://example.com/jobs.rss"}
		got, err := src.FeedURL()
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/jobs.rss", got)
	})

	t.Run("params are encoded in key order", func(t *testing.T) {
		src := Source{
			URL:    "https://example.com/jobs.rss",
			Params: map[string]string{"q": "golang developer", "location": "remote"},
		}
		got, err := src.FeedURL()
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/jobs.rss?location=remote&q=golang+developer", got)
	})

	t.Run("params merge with existing query", func(t *testing.T) {
		src := Source{
			URL:    "https://example.com/jobs.rss?format=rss",
			Params: map[string]string{"q": "go"},
		}
		got, err := src.FeedURL()
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/jobs.rss?format=rss&q=go", got)
	})
}
