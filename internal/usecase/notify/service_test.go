package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/notifier"
	"feedwatch/internal/resilience/circuitbreaker"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChannel struct {
	name    string
	enabled bool
	err     error
	panics  bool

	mu      sync.Mutex
	batches [][]entity.NewItem
}

func (m *mockChannel) Name() string    { return m.name }
func (m *mockChannel) IsEnabled() bool { return m.enabled }

func (m *mockChannel) SendBatch(_ context.Context, items []entity.NewItem) error {
	m.mu.Lock()
	m.batches = append(m.batches, items)
	m.mu.Unlock()
	if m.panics {
		panic("boom")
	}
	return m.err
}

func (m *mockChannel) batchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, 0, len(m.batches))
	for _, b := range m.batches {
		sizes = append(sizes, len(b))
	}
	return sizes
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	if r.err != nil {
		return r.err
	}
	return ctx.Err()
}

func newItems(n int) []entity.NewItem {
	items := make([]entity.NewItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, entity.NewItem{
			ID:         fmt.Sprintf("https://example.com/jobs/%d", i),
			Title:      fmt.Sprintf("Job %d", i),
			SourceName: "Board",
		})
	}
	return items
}

func TestDispatch_SplitsIntoBatchesOfTen(t *testing.T) {
	discord := &mockChannel{name: "discord", enabled: true}
	slack := &mockChannel{name: "slack", enabled: true}
	sleeper := &recordingSleeper{}
	d := NewDispatcher([]Channel{discord, slack}, DefaultConfig(), WithSleeper(sleeper))

	stats := d.Dispatch(context.Background(), newItems(23))

	assert.Equal(t, []int{10, 10, 3}, discord.batchSizes())
	assert.Equal(t, []int{10, 10, 3}, slack.batchSizes())
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeper.delays)
	assert.Equal(t, DispatchStats{Items: 23, Batches: 3, Channels: 2, Delivered: 6}, stats)

	// order is preserved across batches
	assert.Equal(t, "https://example.com/jobs/10", discord.batches[1][0].ID)
	assert.Equal(t, "https://example.com/jobs/22", discord.batches[2][2].ID)
}

func TestDispatch_SkipsDisabledChannels(t *testing.T) {
	disabled := &mockChannel{name: "slack", enabled: false}
	sleeper := &recordingSleeper{}
	d := NewDispatcher([]Channel{disabled}, DefaultConfig(), WithSleeper(sleeper))

	stats := d.Dispatch(context.Background(), newItems(15))

	assert.Empty(t, disabled.batchSizes())
	assert.Empty(t, sleeper.delays)
	assert.Equal(t, 0, stats.Channels)
	assert.Equal(t, 0, stats.Batches)
}

func TestDispatch_EmptyItemsSendNothing(t *testing.T) {
	ch := &mockChannel{name: "discord", enabled: true}
	d := NewDispatcher([]Channel{ch}, DefaultConfig(), WithSleeper(&recordingSleeper{}))

	stats := d.Dispatch(context.Background(), nil)

	assert.Empty(t, ch.batchSizes())
	assert.Equal(t, 0, stats.Batches)
}

func TestDispatch_SanitizesText(t *testing.T) {
	ch := &mockChannel{name: "discord", enabled: true}
	d := NewDispatcher([]Channel{ch}, DefaultConfig(), WithSleeper(&recordingSleeper{}))

	input := []entity.NewItem{{
		ID:         "https://example.com/a?x=1&y=2",
		Title:      "  Senior Go &amp; SRE\x00 ",
		SourceName: "<Board>",
		Summary:    "",
	}}
	d.Dispatch(context.Background(), input)

	require.Len(t, ch.batches, 1)
	got := ch.batches[0][0]
	assert.Equal(t, "Senior Go  SRE", got.Title)
	assert.Equal(t, "Board", got.SourceName)
	assert.Equal(t, "", got.Summary, "an empty summary stays empty")
	assert.Equal(t, "https://example.com/a?x=1&y=2", got.ID, "identifiers are not sanitized")
	assert.Equal(t, "  Senior Go &amp; SRE\x00 ", input[0].Title, "input is not mutated")
}

func TestDispatch_FailureIsNotFatal(t *testing.T) {
	failing := &mockChannel{name: "discord", enabled: true, err: errors.New("webhook down")}
	ok := &mockChannel{name: "slack", enabled: true}
	d := NewDispatcher([]Channel{failing, ok}, DefaultConfig(), WithSleeper(&recordingSleeper{}))

	stats := d.Dispatch(context.Background(), newItems(25))

	assert.Equal(t, []int{10, 10, 5}, failing.batchSizes(), "every batch is still attempted")
	assert.Equal(t, []int{10, 10, 5}, ok.batchSizes())
	assert.Equal(t, 3, stats.Failed)
	assert.Equal(t, 3, stats.Delivered)
}

func TestDispatch_CircuitBreakerRejectsAfterConsecutiveFailures(t *testing.T) {
	failing := &mockChannel{name: "discord", enabled: true, err: errors.New("webhook down")}
	d := NewDispatcher([]Channel{failing}, DefaultConfig(),
		WithSleeper(&recordingSleeper{}),
		WithBreakerConfig(func(name string) circuitbreaker.Config {
			cfg := circuitbreaker.WebhookConfig(name)
			cfg.ConsecutiveFailures = 2
			return cfg
		}))

	before := testutil.ToFloat64(circuitBreakerOpenTotal.WithLabelValues("discord"))
	stats := d.Dispatch(context.Background(), newItems(50))

	assert.Len(t, failing.batchSizes(), 2, "open circuit stops calls to the channel")
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 3, stats.Rejected)
	assert.Equal(t, before+1, testutil.ToFloat64(circuitBreakerOpenTotal.WithLabelValues("discord")))

	health := d.ChannelHealth()
	require.Len(t, health, 1)
	assert.True(t, health[0].CircuitBreakerOpen)
}

func TestDispatch_CanceledDuringPause(t *testing.T) {
	ch := &mockChannel{name: "discord", enabled: true}
	sleeper := &recordingSleeper{err: context.Canceled}
	d := NewDispatcher([]Channel{ch}, DefaultConfig(), WithSleeper(sleeper))

	stats := d.Dispatch(context.Background(), newItems(23))

	assert.Equal(t, []int{10}, ch.batchSizes())
	assert.Equal(t, 2, stats.Undelivered)
	assert.Equal(t, 1, stats.Batches)
}

func TestDispatch_PanicIsCountedAsFailure(t *testing.T) {
	bad := &mockChannel{name: "discord", enabled: true, panics: true}
	good := &mockChannel{name: "slack", enabled: true}
	d := NewDispatcher([]Channel{bad, good}, DefaultConfig(), WithSleeper(&recordingSleeper{}))

	stats := d.Dispatch(context.Background(), newItems(3))

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, []int{3}, good.batchSizes())
}

func TestDispatch_RecordsMetrics(t *testing.T) {
	ch := &mockChannel{name: "metrics-probe", enabled: true}
	d := NewDispatcher([]Channel{ch}, DefaultConfig(), WithSleeper(&recordingSleeper{}))

	batches := testutil.ToFloat64(notifyBatchesTotal.WithLabelValues("metrics-probe", "success"))
	items := testutil.ToFloat64(notifyItemsTotal.WithLabelValues("metrics-probe"))

	d.Dispatch(context.Background(), newItems(12))

	assert.Equal(t, batches+2, testutil.ToFloat64(notifyBatchesTotal.WithLabelValues("metrics-probe", "success")))
	assert.Equal(t, items+12, testutil.ToFloat64(notifyItemsTotal.WithLabelValues("metrics-probe")))
	assert.Equal(t, 1.0, testutil.ToFloat64(channelsEnabled))
}

func TestDispatch_DiscordWebhookEndToEnd(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []notifier.DiscordWebhookPayload
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p notifier.DiscordWebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	discord := NewDiscordChannel(
		notifier.DiscordConfig{Enabled: true, WebhookURL: server.URL, Timeout: 5 * time.Second},
		notifier.WithLimiter(notifier.Unlimited()))
	slack := NewSlackChannel(notifier.SlackConfig{Enabled: false})

	d := NewDispatcher([]Channel{discord, slack}, DefaultConfig(), WithSleeper(&recordingSleeper{}))
	stats := d.Dispatch(context.Background(), newItems(12))

	assert.Equal(t, 2, stats.Delivered)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 2)
	assert.Equal(t, "**Found 10 new items!**", payloads[0].Content)
	assert.Len(t, payloads[0].Embeds, 10)
	assert.Equal(t, "**Found 2 new items!**", payloads[1].Content)
	assert.Equal(t, "Source: Board", payloads[1].Embeds[0].Description)
}

func TestChannels_DisabledReturnsError(t *testing.T) {
	discord := NewDiscordChannel(notifier.DiscordConfig{Enabled: false})
	slack := NewSlackChannel(notifier.SlackConfig{Enabled: false})

	assert.Equal(t, "discord", discord.Name())
	assert.Equal(t, "slack", slack.Name())
	assert.False(t, discord.IsEnabled())
	assert.ErrorIs(t, discord.SendBatch(context.Background(), newItems(1)), ErrChannelDisabled)
	assert.ErrorIs(t, slack.SendBatch(context.Background(), newItems(1)), ErrChannelDisabled)
}

func TestBatches(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, []int{}},
		{1, []int{1}},
		{10, []int{10}},
		{11, []int{10, 1}},
		{23, []int{10, 10, 3}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d items", tt.n), func(t *testing.T) {
			sizes := []int{}
			for _, b := range Batches(newItems(tt.n), BatchSize) {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.want, sizes)
		})
	}
}
