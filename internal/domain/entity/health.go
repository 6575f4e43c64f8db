package entity

import (
	"encoding/json"
	"time"
)

// HealthStatus is the display classification of a HealthRecord.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDisabled  HealthStatus = "disabled"
)

// HealthRecord is the persisted reliability state of one Source, keyed by source name.
//
// Invariant: Disabled implies ConsecutiveFailures >= the configured failure threshold,
// unless an operator toggled it manually. A recorded success always resets
// ConsecutiveFailures to 0 and clears Disabled.
type HealthRecord struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TotalAttempts       int        `json:"total_attempts"`
	TotalSuccesses      int        `json:"total_successes"`
	LastSuccess         *Timestamp `json:"last_success,omitempty"`
	LastFailure         *Timestamp `json:"last_failure,omitempty"`

	// LastStatusCode is nil for failures that produced no HTTP response. Older
	// files store "none" there; any value that is not an integer decodes as nil.
	LastStatusCode *int `json:"last_status_code"`

	Disabled bool `json:"disabled"`
}

// UnmarshalJSON decodes a record, tolerating a non-integer last_status_code.
func (r *HealthRecord) UnmarshalJSON(b []byte) error {
	type plain HealthRecord
	aux := struct {
		*plain
		LastStatusCode json.RawMessage `json:"last_status_code"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	r.LastStatusCode = nil
	var code int
	if len(aux.LastStatusCode) > 0 && json.Unmarshal(aux.LastStatusCode, &code) == nil {
		r.LastStatusCode = &code
	}
	return nil
}

// ShouldDisable returns true if the record has reached the consecutive failure threshold.
func (r *HealthRecord) ShouldDisable(threshold int) bool {
	return r.ConsecutiveFailures >= threshold
}

// LastActivity returns the most recent of LastSuccess and LastFailure.
// The second result is false when neither timestamp is present and valid.
func (r *HealthRecord) LastActivity() (time.Time, bool) {
	var latest time.Time
	found := false
	if r.LastSuccess.Valid() {
		latest = r.LastSuccess.Time
		found = true
	}
	if r.LastFailure.Valid() && (!found || r.LastFailure.After(latest)) {
		latest = r.LastFailure.Time
		found = true
	}
	return latest, found
}

// SuccessRate returns total successes over total attempts as a percentage.
func (r *HealthRecord) SuccessRate() float64 {
	attempts := r.TotalAttempts
	if attempts < 1 {
		attempts = 1
	}
	return float64(r.TotalSuccesses) / float64(attempts) * 100
}

// Status classifies the record for reporting.
func (r *HealthRecord) Status() HealthStatus {
	switch {
	case r.Disabled:
		return HealthStatusDisabled
	case r.ConsecutiveFailures > 0:
		return HealthStatusUnhealthy
	default:
		return HealthStatusHealthy
	}
}

// Clone returns a deep copy of the record.
func (r *HealthRecord) Clone() HealthRecord {
	c := *r
	if r.LastSuccess != nil {
		ts := *r.LastSuccess
		c.LastSuccess = &ts
	}
	if r.LastFailure != nil {
		ts := *r.LastFailure
		c.LastFailure = &ts
	}
	if r.LastStatusCode != nil {
		code := *r.LastStatusCode
		c.LastStatusCode = &code
	}
	return c
}
