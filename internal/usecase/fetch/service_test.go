package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/store/health"
	"feedwatch/internal/store/seen"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func rss(links ...string) string {
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`
	for _, l := range links {
		body += `<item><title>Title ` + l + `</title><link>` + l + `</link></item>`
	}
	return body + `</channel></rss>`
}

// stubFetcher returns canned outcomes keyed by source name.
type stubFetcher map[string]Outcome

func (f stubFetcher) Fetch(_ context.Context, src entity.Source, _ HealthView) Outcome {
	if out, ok := f[src.Name]; ok {
		out.Source = src.Name
		return out
	}
	panic("unexpected source " + src.Name)
}

func items(ids ...string) []entity.FeedItem {
	out := make([]entity.FeedItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.FeedItem{ID: id, Title: "Title " + id})
	}
	return out
}

func TestService_Run_TwoSourcesOneNew(t *testing.T) {
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	a := feedServer(t, rss("https://a.example/1"))
	b := feedServer(t, rss("https://b.example/known"))

	seenStore := seen.NewStore()
	seenStore.Record("https://b.example/known", now.Add(-time.Hour))
	healthStore := health.NewStore(3)

	svc := NewService(newTestWorker(&recordingSleeper{}), healthStore, seenStore, Config{}, WithClock(func() time.Time { return now }))

	sources := []entity.Source{
		{Name: "A", URL: a.URL, Source: "Example", Enabled: true},
		{Name: "B", URL: b.URL, Source: "Example", Enabled: true},
	}
	got, stats := svc.Run(context.Background(), sources)

	want := []entity.NewItem{
		{ID: "https://a.example/1", Title: "Title https://a.example/1", SourceName: "A"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("new items mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.NewItems)
	assert.True(t, seenStore.Contains("https://a.example/1"))
	assert.Equal(t, 2, seenStore.Len())

	for _, name := range []string{"A", "B"} {
		rec, ok := healthStore.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, 1, rec.TotalSuccesses, name)
	}
}

func TestService_Run_OrderAndDedupe(t *testing.T) {
	fetcher := stubFetcher{
		"first":  {Success: true, Items: items("x", "y", "x")},
		"second": {Success: true, Items: items("y", "z")},
	}
	seenStore := seen.NewStore()
	svc := NewService(fetcher, health.NewStore(3), seenStore, Config{})

	got, _ := svc.Run(context.Background(), []entity.Source{{Name: "first"}, {Name: "second"}})

	var ids []string
	var owners []string
	for _, it := range got {
		ids = append(ids, it.ID)
		owners = append(owners, it.SourceName)
	}
	assert.Equal(t, []string{"x", "y", "z"}, ids)
	assert.Equal(t, []string{"first", "first", "second"}, owners)
}

func TestService_Run_ItemCapDefersRemainder(t *testing.T) {
	fetcher := stubFetcher{
		"only": {Success: true, Items: items("1", "2", "3", "4", "5")},
	}
	seenStore := seen.NewStore()
	svc := NewService(fetcher, health.NewStore(3), seenStore, Config{MaxItemsPerRun: 3})

	got, stats := svc.Run(context.Background(), []entity.Source{{Name: "only"}})

	assert.Len(t, got, 3)
	assert.Equal(t, 2, stats.Deferred)
	assert.False(t, seenStore.Contains("4"), "deferred items are not marked seen")
	assert.False(t, seenStore.Contains("5"))

	got, _ = svc.Run(context.Background(), []entity.Source{{Name: "only"}})
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID)
}

func TestService_Run_AppliesHealthOutcomes(t *testing.T) {
	status := 500
	fetcher := stubFetcher{
		"ok":       {Success: true},
		"failing":  {StatusCode: &status},
		"skipped":  {Skipped: true, SkipReason: SkipUnhealthy},
		"canceled": {Canceled: true},
	}
	healthStore := health.NewStore(3)
	svc := NewService(fetcher, healthStore, seen.NewStore(), Config{})

	_, stats := svc.Run(context.Background(), []entity.Source{
		{Name: "ok"}, {Name: "failing"}, {Name: "skipped"}, {Name: "canceled"},
	})

	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Canceled)

	rec, _ := healthStore.Get("failing")
	assert.Equal(t, 1, rec.ConsecutiveFailures)
	require.NotNil(t, rec.LastStatusCode)
	assert.Equal(t, 500, *rec.LastStatusCode)

	_, ok := healthStore.Get("skipped")
	assert.False(t, ok, "skipped sources get no health record")
	_, ok = healthStore.Get("canceled")
	assert.False(t, ok, "canceled fetches get no health record")
}

func TestService_Run_PanicIsIsolated(t *testing.T) {
	fetcher := stubFetcher{
		"good": {Success: true, Items: items("a")},
	}
	healthStore := health.NewStore(3)
	svc := NewService(fetcher, healthStore, seen.NewStore(), Config{})

	got, stats := svc.Run(context.Background(), []entity.Source{{Name: "boom"}, {Name: "good"}})

	assert.Len(t, got, 1)
	assert.Equal(t, 1, stats.Failed)
	rec, _ := healthStore.Get("boom")
	assert.Equal(t, 1, rec.ConsecutiveFailures)
}
