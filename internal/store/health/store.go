// Package health implements the per-source reliability store.
//
// The store is an in-memory map of entity.HealthRecord keyed by source name with
// whole-file JSON persistence. State transitions are pure: RecordOutcome and the
// administrative overrides mutate memory only, and the caller persists once per run.
package health

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/jsonfile"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for last_success / last_failure and sweeps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store holds HealthRecords keyed by source name.
// All methods are safe for concurrent use; the mutex is never held across file I/O.
type Store struct {
	mu        sync.RWMutex
	records   map[string]*entity.HealthRecord
	threshold int
	now       func() time.Time
	logger    *slog.Logger
}

// NewStore creates an empty Store that auto-disables a source once its consecutive
// failures reach threshold. Thresholds below 1 are raised to 1.
func NewStore(threshold int, opts ...Option) *Store {
	if threshold < 1 {
		threshold = 1
	}
	s := &Store{
		records:   make(map[string]*entity.HealthRecord),
		threshold: threshold,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the consecutive failure count at which a source is disabled.
func (s *Store) Threshold() int {
	return s.threshold
}

// Load replaces the in-memory records with the contents of path.
// A missing file yields an empty store and no error. On a read or decode error the
// store is left empty and the error is returned for the caller to log.
func (s *Store) Load(path string) error {
	var raw map[string]*entity.HealthRecord
	_, err := jsonfile.Read(path, &raw)

	records := make(map[string]*entity.HealthRecord, len(raw))
	if err == nil {
		for name, rec := range raw {
			if rec == nil {
				continue
			}
			records[name] = rec
		}
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("load health records: %w", err)
	}
	return nil
}

// Save writes every record to path, replacing the file.
func (s *Store) Save(path string) error {
	snapshot := s.Snapshot()
	if err := jsonfile.Write(path, snapshot); err != nil {
		return fmt.Errorf("save health records: %w", err)
	}
	return nil
}

// IsHealthy reports false only when a record exists and is disabled.
func (s *Store) IsHealthy(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	return !ok || !rec.Disabled
}

// Get returns a copy of the record for name.
func (s *Store) Get(name string) (entity.HealthRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok {
		return entity.HealthRecord{}, false
	}
	return rec.Clone(), true
}

// Snapshot returns a deep copy of all records.
func (s *Store) Snapshot() map[string]entity.HealthRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]entity.HealthRecord, len(s.records))
	for name, rec := range s.records {
		out[name] = rec.Clone()
	}
	return out
}

// Names returns the source names with a record, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// RecordOutcome applies the result of one fetch run for name and returns the updated record.
//
// The record is created if absent and total_attempts is incremented. A success resets
// consecutive_failures, increments total_successes, stamps last_success and re-enables
// the source. A failure increments consecutive_failures, stamps last_failure and disables
// the source once the threshold is reached. statusCode may be nil for failures without
// an HTTP response.
func (s *Store) RecordOutcome(name string, success bool, statusCode *int) entity.HealthRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		rec = &entity.HealthRecord{}
		s.records[name] = rec
	}

	now := s.now()
	rec.TotalAttempts++
	if statusCode != nil {
		code := *statusCode
		rec.LastStatusCode = &code
	} else {
		rec.LastStatusCode = nil
	}

	if success {
		wasDisabled := rec.Disabled
		rec.ConsecutiveFailures = 0
		rec.TotalSuccesses++
		rec.LastSuccess = entity.NewTimestamp(now)
		rec.Disabled = false
		if wasDisabled {
			s.logger.Info("source recovered",
				slog.String("source", name))
		}
		return rec.Clone()
	}

	rec.ConsecutiveFailures++
	rec.LastFailure = entity.NewTimestamp(now)
	if rec.ShouldDisable(s.threshold) && !rec.Disabled {
		rec.Disabled = true
		s.logger.Warn("source disabled after consecutive failures",
			slog.String("source", name),
			slog.Int("consecutive_failures", rec.ConsecutiveFailures),
			slog.Int("threshold", s.threshold))
	}
	return rec.Clone()
}

// Reset clears the failure streak and re-enables name.
func (s *Store) Reset(name string) error {
	return s.update(name, func(rec *entity.HealthRecord) {
		rec.ConsecutiveFailures = 0
		rec.Disabled = false
	})
}

// Enable re-enables a disabled source and clears its failure streak.
func (s *Store) Enable(name string) error {
	return s.update(name, func(rec *entity.HealthRecord) {
		rec.Disabled = false
		rec.ConsecutiveFailures = 0
	})
}

// Disable marks name as disabled regardless of its failure count.
func (s *Store) Disable(name string) error {
	return s.update(name, func(rec *entity.HealthRecord) {
		rec.Disabled = true
	})
}

func (s *Store) update(name string, fn func(*entity.HealthRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return fmt.Errorf("source %q: %w", name, entity.ErrNotFound)
	}
	fn(rec)
	return nil
}

// Remove deletes the record for name.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return fmt.Errorf("source %q: %w", name, entity.ErrNotFound)
	}
	delete(s.records, name)
	return nil
}

// SweepStale removes records whose latest activity is older than maxAgeDays, and
// records with no recorded activity at all. It returns the number removed.
func (s *Store) SweepStale(maxAgeDays int) int {
	cutoff := s.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for name, rec := range s.records {
		last, ok := rec.LastActivity()
		if ok && !last.Before(cutoff) {
			continue
		}
		delete(s.records, name)
		removed++
		s.logger.Info("removed stale health record",
			slog.String("source", name),
			slog.Int("max_age_days", maxAgeDays))
	}
	return removed
}
