package seen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"feedwatch/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStore_RecordKeepsFirstSeen(t *testing.T) {
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore()

	s.Record("item-1", first)
	s.Record("item-1", first.Add(48*time.Hour))

	assert.True(t, s.Contains("item-1"))
	assert.False(t, s.Contains("item-2"))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, entity.FormatTimestamp(first), s.Snapshot()["item-1"])
}

func TestStore_EvictOlderThan(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(fixedClock(now)))

	s.Record("old", now.AddDate(0, 0, -35))
	s.Record("recent", now.AddDate(0, 0, -10))
	s.entries["broken"] = "not a timestamp"

	removed := s.EvictOlderThan(30)

	assert.Equal(t, 1, removed)
	assert.False(t, s.Contains("old"))
	assert.True(t, s.Contains("recent"))
	assert.True(t, s.Contains("broken"), "malformed timestamps are never evicted")
}

func TestStore_Load_LegacyArray(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "seen_jobs.json")
	require.NoError(t, os.WriteFile(path, []byte(`["https://example.com/a", "https://example.com/b"]`), 0o644))

	s := NewStore(WithClock(fixedClock(now)))
	format, err := s.Load(path)
	require.NoError(t, err)

	assert.Equal(t, FormatLegacy, format)
	assert.Equal(t, 2, s.Len())
	for id, ts := range s.Snapshot() {
		parsed, err := entity.ParseTimestamp(ts)
		require.NoError(t, err, id)
		assert.True(t, now.Equal(parsed), id)
	}
}

func TestStore_Load_CurrentFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen_jobs.json")
	raw := `{"a": "2025-01-02T03:04:05.000006", "b": "2025-01-02T03:04:05Z", "c": 12}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s := NewStore()
	format, err := s.Load(path)
	require.NoError(t, err)

	assert.Equal(t, FormatCurrent, format)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "12", s.Snapshot()["c"])
}

func TestStore_Load_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()

	format, err := s.Load(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, FormatMissing, format)
	assert.Equal(t, 0, s.Len())

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`"just a string"`), 0o644))
	s.Record("stale", time.Now())

	_, err = s.Load(corrupt)
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStore_SaveWritesObjectForm(t *testing.T) {
	now := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "seen_jobs.json")
	require.NoError(t, os.WriteFile(path, []byte(`["legacy-id"]`), 0o644))

	s := NewStore(WithClock(fixedClock(now)))
	_, err := s.Load(path)
	require.NoError(t, err)
	s.Record("new-id", now)
	require.NoError(t, s.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk map[string]string
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Len(t, onDisk, 2)
	assert.Contains(t, onDisk, "legacy-id")
	assert.Contains(t, onDisk, "new-id")

	reloaded := NewStore()
	format, err := reloaded.Load(path)
	require.NoError(t, err)
	assert.Equal(t, FormatCurrent, format)
}
