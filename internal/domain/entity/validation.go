package entity

import (
	"net/url"
	"strings"
)

// maxURLLength caps feed URLs. Some job boards truncate longer query strings silently.
const maxURLLength = 2048

// ValidateURL checks that rawURL can be fetched: an absolute http(s) URL with a host.
func ValidateURL(rawURL string) error {
	switch {
	case rawURL == "":
		return invalid("url", "required")
	case len(rawURL) > maxURLLength:
		return invalid("url", "longer than %d characters", maxURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return invalid("url", "%v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("url", "scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" {
		return invalid("url", "no host")
	}
	return nil
}

// validateParams rejects blank query parameter names.
func validateParams(params map[string]string) error {
	for k := range params {
		if strings.TrimSpace(k) == "" {
			return invalid("params", "blank parameter name")
		}
	}
	return nil
}
