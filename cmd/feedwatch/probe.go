package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/feedconfig"
	"feedwatch/internal/infra/scraper"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Probe statuses.
const (
	probeOK           = "OK"
	probeEmpty        = "EMPTY"
	probeHTTPError    = "HTTP_ERROR"
	probeParseError   = "PARSE_ERROR"
	probeTimeout      = "TIMEOUT"
	probeRequestError = "REQUEST_ERROR"
)

// FeedDiagnostic is the result of probing one source.
type FeedDiagnostic struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Enabled      bool   `json:"enabled"`
	Status       string `json:"status"`
	HTTPCode     int    `json:"http_code"`
	ItemCount    int    `json:"item_count"`
	LatestDate   string `json:"latest_date,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

func newProbeCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Fetch every configured feed once and report what came back",
		Long: "probe requests each source a single time, without retries, and prints the HTTP\n" +
			"status, item count and newest entry. Health and seen state are not touched.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := feedconfig.Load(a.cfg.FeedsFile)
			if err != nil {
				return err
			}

			client := scraper.NewFeedClient(newHTTPClient(a.cfg.RequestTimeout), a.cfg.ScraperConfig())
			results := probeSources(cmd.Context(), client, sources, a.cfg.FetchConcurrency)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			return writeProbeReport(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

// feedFetcher is satisfied by *scraper.FeedClient.
type feedFetcher interface {
	FetchOnce(ctx context.Context, url string) (scraper.Response, error)
}

// probeSources probes every source with at most limit requests in flight.
// Results keep the order of sources.
func probeSources(ctx context.Context, client feedFetcher, sources []entity.Source, limit int) []FeedDiagnostic {
	results := make([]FeedDiagnostic, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, src := range sources {
		g.Go(func() error {
			results[i] = probe(gctx, client, src)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func probe(ctx context.Context, client feedFetcher, src entity.Source) FeedDiagnostic {
	diag := FeedDiagnostic{Name: src.Name, URL: src.URL, Enabled: src.Enabled}

	feedURL, err := src.FeedURL()
	if err != nil {
		diag.Status = probeRequestError
		diag.ErrorMessage = err.Error()
		return diag
	}
	diag.URL = feedURL

	start := time.Now()
	resp, err := client.FetchOnce(ctx, diag.URL)
	diag.ResponseTime = time.Since(start).Milliseconds()
	diag.HTTPCode = resp.StatusCode

	switch {
	case err == nil && len(resp.Items) == 0:
		diag.Status = probeEmpty
	case err == nil:
		diag.Status = probeOK
		diag.ItemCount = len(resp.Items)
		if latest := latestPublished(resp.Items); !latest.IsZero() {
			diag.LatestDate = latest.UTC().Format(time.RFC3339)
		}
	case errors.Is(err, scraper.ErrParse):
		diag.Status = probeParseError
	case resp.StatusCode != 0:
		diag.Status = probeHTTPError
	case errors.Is(err, context.DeadlineExceeded):
		diag.Status = probeTimeout
	default:
		diag.Status = probeRequestError
	}
	if err != nil {
		diag.ErrorMessage = err.Error()
	}
	return diag
}

func latestPublished(items []entity.FeedItem) time.Time {
	var latest time.Time
	for _, item := range items {
		if item.Published != nil && item.Published.After(latest) {
			latest = *item.Published
		}
	}
	return latest
}

func writeProbeReport(w io.Writer, results []FeedDiagnostic) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tHTTP\tITEMS\tLATEST\tTIME")

	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
		latest := r.LatestDate
		if latest == "" {
			latest = "-"
		}
		name := r.Name
		if !r.Enabled {
			name += " (disabled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%dms\n", name, r.Status, r.HTTPCode, r.ItemCount, latest, r.ResponseTime)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d feeds: %d ok, %d empty, %d failing\n",
		len(results), counts[probeOK], counts[probeEmpty], len(results)-counts[probeOK]-counts[probeEmpty])
	return nil
}
