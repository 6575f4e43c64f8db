// Package retry classifies feed fetch attempts and drives the bounded retry loop.
//
// A fetch is a sequence of single attempts. Each attempt is reduced to a Class by
// Classify, and a Machine turns the sequence of classes into a decision: stop with
// success, stop with a terminal failure, or back off for a computed delay and try again.
// Sleeping is left to the caller through a Sleeper so the loop can be tested without
// waiting on real time.
package retry

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Class is the classification of one fetch attempt.
type Class int

const (
	// ClassSuccess is an HTTP 200 whose body parsed.
	ClassSuccess Class = iota
	// ClassPermanent is a status that will not change by retrying (400, 401, 403, 404, 410, 451).
	ClassPermanent
	// ClassRateLimited is an HTTP 429.
	ClassRateLimited
	// ClassServer is any 5xx status.
	ClassServer
	// ClassTransport is a timeout, connection error, or any status not covered above.
	ClassTransport
	// ClassParse is an HTTP 200 whose body could not be parsed as a feed.
	ClassParse
)

// String returns the label used in logs and metrics.
func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassPermanent:
		return "permanent"
	case ClassRateLimited:
		return "rate_limited"
	case ClassServer:
		return "server"
	case ClassTransport:
		return "transport"
	case ClassParse:
		return "parse"
	default:
		return "unknown"
	}
}

var permanentStatuses = map[int]bool{
	http.StatusBadRequest:                 true,
	http.StatusUnauthorized:               true,
	http.StatusForbidden:                  true,
	http.StatusNotFound:                   true,
	http.StatusGone:                       true,
	http.StatusUnavailableForLegalReasons: true,
}

// IsPermanentStatus reports whether status is one of the statuses that end a fetch
// after a single attempt.
func IsPermanentStatus(status int) bool {
	return permanentStatuses[status]
}

// Classify maps the result of one attempt to a Class.
// status is 0 when no HTTP response was received. err is the transport or parse error,
// if any. Only status 200 counts as success; other 2xx and 3xx codes are Transport.
func Classify(status int, err error) Class {
	switch {
	case status == 0:
		return ClassTransport
	case status == http.StatusOK:
		if err != nil {
			return ClassParse
		}
		return ClassSuccess
	case permanentStatuses[status]:
		return ClassPermanent
	case status == http.StatusTooManyRequests:
		return ClassRateLimited
	case status >= 500 && status <= 599:
		return ClassServer
	default:
		return ClassTransport
	}
}

// ParseRetryAfter parses a Retry-After header value given in whole seconds.
// HTTP-date values and negative numbers are rejected; the caller falls back to its
// default cooldown when ok is false.
func ParseRetryAfter(header string) (d time.Duration, ok bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// HTTPError represents a fetch attempt that ended with a non-success HTTP status.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// StatusCode extracts the HTTP status from err, or returns 0 when err carries none.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
