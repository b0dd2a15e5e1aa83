// Package corpus fetches supplementary holiday title lists from an external
// reference source and caches them with a time-to-live.
//
// Every failure degrades to fewer titles; callers never see an error from
// FetchTitles.
package corpus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/metrics"
)

const (
	DefaultBaseURL = "https://en.wikipedia.org"
	DefaultTTL     = 7 * 24 * time.Hour
	DefaultTimeout = 30 * time.Second

	maxPageBytes = 8 << 20
	userAgent    = "holidarr/1.0 (+https://github.com/holidarr/holidarr)"
)

// DefaultPages maps curated holidays to their reference list pages.
func DefaultPages() map[holiday.Holiday]string {
	return map[holiday.Holiday]string{
		holiday.Christmas:     "/wiki/List_of_Christmas_films",
		holiday.Halloween:     "/wiki/List_of_films_set_around_Halloween",
		holiday.Thanksgiving:  "/wiki/List_of_films_set_around_Thanksgiving",
		holiday.ValentinesDay: "/wiki/List_of_films_set_around_Valentine%27s_Day",
	}
}

// Config configures a Fetcher.
type Config struct {
	BaseURL string
	TTL     time.Duration
	Timeout time.Duration
	Pages   map[holiday.Holiday]string
}

// Fetcher retrieves and caches title lists per holiday.
type Fetcher struct {
	httpClient *http.Client
	cache      TitleCache
	config     Config
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewFetcher creates a fetcher. cache may be nil, in which case every call
// goes to the source.
func NewFetcher(cfg Config, cache TitleCache, m *metrics.Metrics, logger zerolog.Logger) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Pages == nil {
		cfg.Pages = DefaultPages()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		config:     cfg,
		metrics:    m,
		logger:     logger.With().Str("component", "corpus").Logger(),
	}
}

// CacheKey returns the cache key for a holiday's title list.
func CacheKey(h holiday.Holiday) string {
	return KeyPrefix + string(h)
}

// FetchTitles returns supplementary titles per holiday. With skip set it
// returns an empty map without I/O. A nil filter selects every configured
// holiday. Holidays whose lookup fails are left out of the result.
func (f *Fetcher) FetchTitles(ctx context.Context, skip bool, filter holiday.Set) map[holiday.Holiday][]string {
	out := make(map[holiday.Holiday][]string)
	if skip {
		return out
	}

	for _, h := range holiday.All() {
		page, ok := f.config.Pages[h]
		if !ok || (filter != nil && !filter.Has(h)) {
			continue
		}
		if ctx.Err() != nil {
			f.logger.Debug().Err(ctx.Err()).Msg("Title fetch cancelled")
			return out
		}

		titles, err := f.titlesFor(ctx, h, page)
		if err != nil {
			f.metrics.IncCorpusFetch(metrics.CorpusFailed)
			f.logger.Warn().Err(err).Str("holiday", h.String()).Msg("Title corpus unavailable, using curated patterns only")
			continue
		}
		if len(titles) > 0 {
			out[h] = titles
		}
	}
	return out
}

func (f *Fetcher) titlesFor(ctx context.Context, h holiday.Holiday, page string) ([]string, error) {
	key := CacheKey(h)

	if f.cache != nil {
		titles, ok, err := f.cache.Get(ctx, key)
		switch {
		case err != nil:
			f.logger.Warn().Err(err).Str("key", key).Msg("Corpus cache read failed")
		case ok:
			f.metrics.IncCorpusFetch(metrics.CorpusFromCache)
			return titles, nil
		}
	}

	titles, err := f.fetch(ctx, page)
	if err != nil {
		return nil, err
	}
	f.metrics.IncCorpusFetch(metrics.CorpusFetched)

	f.logger.Debug().
		Str("holiday", h.String()).
		Int("titles", len(titles)).
		Msg("Fetched title corpus")

	// Empty results are not cached.
	if f.cache != nil && len(titles) > 0 {
		if err := f.cache.Set(context.WithoutCancel(ctx), key, titles, f.config.TTL); err != nil {
			f.logger.Warn().Err(err).Str("key", key).Msg("Corpus cache write failed")
		}
	}
	return titles, nil
}

func (f *Fetcher) fetch(ctx context.Context, page string) ([]string, error) {
	reqURL := f.config.BaseURL + page
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, reqURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return ExtractTitles(body)
}

// ClearCache drops every cached title list.
func (f *Fetcher) ClearCache(ctx context.Context) error {
	if f.cache == nil {
		return nil
	}
	if err := f.cache.Clear(ctx); err != nil {
		return err
	}
	f.logger.Info().Msg("Title corpus cache cleared")
	return nil
}

// Refresh clears the cache and refetches every configured holiday.
func (f *Fetcher) Refresh(ctx context.Context) (map[holiday.Holiday][]string, error) {
	if err := f.ClearCache(ctx); err != nil {
		return nil, err
	}
	return f.FetchTitles(ctx, false, nil), nil
}
