package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nldigest/internal/cache"
	"github.com/hyperifyio/nldigest/internal/extract"
	"github.com/hyperifyio/nldigest/internal/fetch"
	"github.com/hyperifyio/nldigest/internal/rules"
	"github.com/hyperifyio/nldigest/internal/store"
	"github.com/hyperifyio/nldigest/internal/text"
)

// ErrNoSummary is reported for a record whose page produced no usable summary.
var ErrNoSummary = errors.New("no summary extracted")

// App runs one pass of the newsletter summary pipeline.
type App struct {
	cfg       Config
	getter    sourceGetter
	extractor *extract.Extractor
	httpCache *cache.HTTPCache
	client    *http.Client
	out       io.Writer

	// sleep pauses between records. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	classifier := rules.MustDefault()
	if strings.TrimSpace(cfg.RulesPath) != "" {
		c, err := rules.Load(cfg.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		classifier = c
	}

	a := &App{
		cfg:       cfg,
		extractor: extract.New(classifier),
		client:    newPoliteHTTPClient(cfg.Timeout),
		out:       os.Stdout,
		sleep:     sleepContext,
	}

	if cfg.CacheDir != "" {
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
		if cfg.CacheClear {
			if err := a.httpCache.Clear(); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := a.httpCache.Purge(cfg.CacheMaxAge, time.Now())
			if err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale cache entries")
			}
		}
	}

	a.getter = &fetchClient{client: &fetch.Client{
		HTTPClient:        a.client,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.Attempts,
		PerRequestTimeout: cfg.Timeout,
		Cache:             a.httpCache,
	}}
	return a, nil
}

// SetOutput redirects progress lines, which go to stdout by default.
func (a *App) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	a.out = w
}

// Close releases idle keep-alive connections held by the page client.
func (a *App) Close() {
	if a.client != nil {
		a.client.CloseIdleConnections()
	}
}

// Run loads the collection, processes the selected records one at a time and
// writes the collection back unless this is a dry run. Per-record failures
// are reported and skipped. A cancelled ctx aborts before anything is written.
func (a *App) Run(ctx context.Context) error {
	records, err := store.Load(a.cfg.DataPath)
	if err != nil {
		return err
	}

	targets := selectTargets(records, a.cfg.All, a.cfg.Limit)
	if len(targets) == 0 {
		log.Info().Str("data", a.cfg.DataPath).Msg("nothing to update")
		fmt.Fprintln(a.out, "nothing to update")
		return nil
	}

	mode := ""
	if a.cfg.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(a.out, "generating summaries for %d newsletters%s\n", len(targets), mode)

	report := make([]reportEntry, 0, len(targets))
	succeeded := 0
	for i, rec := range targets {
		if i > 0 && a.cfg.Wait > 0 {
			if err := a.sleep(ctx, a.cfg.Wait); err != nil {
				fmt.Fprintln(a.out, "aborted")
				return fmt.Errorf("aborted before %q: %w", rec.Link, err)
			}
		}
		fmt.Fprintf(a.out, "[%d/%d] %s … ", i+1, len(targets), rec.Title)

		res, err := a.process(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(a.out, "aborted")
				return fmt.Errorf("aborted at %q: %w", rec.Link, ctx.Err())
			}
			fmt.Fprintf(a.out, "failed: %v\n", err)
			log.Warn().Err(err).Str("url", rec.Link).Msg("record skipped")
			report = append(report, newReportEntry(rec, extract.Result{}, err))
			continue
		}

		succeeded++
		if !a.cfg.DryRun {
			applyResult(rec, res)
		}
		fmt.Fprintf(a.out, "ok (%d chars, %d highlights, thumbnail: %s)\n",
			text.Len(res.Summary), len(res.Highlights), yesNo(res.Thumbnail != ""))
		if a.cfg.DryRun {
			printResult(a.out, res)
		}
		report = append(report, newReportEntry(rec, res, nil))
	}

	if a.cfg.ReportPath != "" {
		if err := writeReport(a.cfg.ReportPath, report); err != nil {
			return err
		}
		log.Info().Str("path", a.cfg.ReportPath).Msg("wrote run report")
	}

	log.Info().Int("processed", len(targets)).Int("succeeded", succeeded).Msg("run finished")
	if a.cfg.DryRun {
		fmt.Fprintln(a.out, "dry run: no changes written")
		return nil
	}

	if a.cfg.ClearBadges {
		for _, r := range records {
			if r != nil {
				r.Delete(store.FieldBadges)
			}
		}
	}
	out := a.cfg.outputPath()
	if err := store.Save(out, records); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated %s\n", out)
	return nil
}

// process fetches and extracts a single record without touching it.
func (a *App) process(ctx context.Context, rec *store.Record) (extract.Result, error) {
	body, contentType, err := a.getter.get(ctx, rec.Link)
	if err != nil {
		return extract.Result{}, err
	}
	res, err := a.extractor.Extract(body, contentType, rec.Link)
	if err != nil {
		return extract.Result{}, fmt.Errorf("extract: %w", err)
	}
	if res.Summary == "" {
		return extract.Result{}, ErrNoSummary
	}
	return res, nil
}

// selectTargets keeps records with a link and, unless all is set, only those
// missing a summary. limit > 0 caps the result in original order.
func selectTargets(records []*store.Record, all bool, limit int) []*store.Record {
	out := make([]*store.Record, 0, len(records))
	for _, r := range records {
		if r == nil || !r.HasLink() {
			continue
		}
		if !all && !r.NeedsSummary() {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// applyResult replaces the summary and sets or clears highlights and the
// thumbnail independently.
func applyResult(rec *store.Record, res extract.Result) {
	rec.Summary = res.Summary
	if len(res.Highlights) > 0 {
		rec.Highlights = append([]string(nil), res.Highlights...)
	} else {
		rec.Highlights = nil
	}
	rec.Thumbnail = res.Thumbnail
}

func printResult(w io.Writer, res extract.Result) {
	fmt.Fprintf(w, "    summary: %s\n", res.Summary)
	for _, h := range res.Highlights {
		fmt.Fprintf(w, "    - %s\n", h)
	}
	if res.Thumbnail != "" {
		fmt.Fprintf(w, "    thumbnail: %s\n", res.Thumbnail)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// sleepContext waits d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// sourceGetter abstracts the minimal fetch method used for tests.
type sourceGetter interface {
	get(ctx context.Context, url string) ([]byte, string, error)
}

// fetchClient is a small adapter around fetch.Client to keep app package decoupled
// from the exact fetcher API shape and simplify testing.
type fetchClient struct {
	client *fetch.Client
}

func (f *fetchClient) get(ctx context.Context, url string) ([]byte, string, error) {
	if f == nil || f.client == nil {
		return nil, "", fmt.Errorf("fetch client not configured")
	}
	return f.client.Get(ctx, url)
}
