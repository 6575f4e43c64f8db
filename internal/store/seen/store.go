// Package seen implements the persisted set of item identifiers that have already been
// reported, each with its first-seen timestamp.
//
// On disk the set is a JSON object mapping identifier to an ISO-8601 timestamp. Older
// files hold a bare JSON array of identifiers; Load normalizes both shapes into the one
// in-memory representation before anything else touches the data.
package seen

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/jsonfile"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for legacy upgrades and eviction.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the set of seen item identifiers.
// All methods are safe for concurrent use; the mutex is never held across file I/O.
type Store struct {
	mu sync.RWMutex

	// entries maps identifier to its stored timestamp text. The text is kept verbatim
	// so a malformed value survives a load/save cycle unchanged.
	entries map[string]string

	now    func() time.Time
	logger *slog.Logger
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]string),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory set with the contents of path and reports which on-disk
// format was found. A missing file yields an empty set and no error. On a read or
// decode error the set is left empty and the error is returned for the caller to log.
func (s *Store) Load(path string) (Format, error) {
	data, found, err := jsonfile.ReadRaw(path)
	if err != nil {
		s.replace(map[string]string{})
		return FormatMissing, fmt.Errorf("load seen items: %w", err)
	}
	if !found {
		s.replace(map[string]string{})
		return FormatMissing, nil
	}

	entries, format, err := normalize(data, s.now())
	if err != nil {
		s.replace(map[string]string{})
		return format, fmt.Errorf("load seen items from %s: %w", path, err)
	}

	if format == FormatLegacy {
		s.logger.Info("upgraded legacy seen-items file",
			slog.String("path", path),
			slog.Int("entries", len(entries)))
	}

	s.replace(entries)
	return format, nil
}

func (s *Store) replace(entries map[string]string) {
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
}

// Save writes the set to path, replacing the file.
func (s *Store) Save(path string) error {
	if err := jsonfile.Write(path, s.Snapshot()); err != nil {
		return fmt.Errorf("save seen items: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the identifier to timestamp map.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.entries))
	for id, ts := range s.entries {
		out[id] = ts
	}
	return out
}

// Contains reports whether id has been seen.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[id]
	return ok
}

// Record marks id as seen at t. Recording an id that is already present keeps the
// original first-seen timestamp, so repeated calls are idempotent.
func (s *Store) Record(id string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return
	}
	s.entries[id] = entity.FormatTimestamp(t)
}

// Len returns the number of identifiers in the set.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// EvictOlderThan removes entries whose timestamp parses and is older than maxAgeDays.
// Entries with a malformed timestamp are kept: dropping one would re-report its item.
// It returns the number of entries removed.
func (s *Store) EvictOlderThan(maxAgeDays int) int {
	cutoff := s.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, malformed := 0, 0
	for id, raw := range s.entries {
		ts, err := entity.ParseTimestamp(raw)
		if err != nil {
			malformed++
			continue
		}
		if ts.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}

	if malformed > 0 {
		s.logger.Warn("kept seen items with malformed timestamps",
			slog.Int("count", malformed))
	}
	return removed
}
