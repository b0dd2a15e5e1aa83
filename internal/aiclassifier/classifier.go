// Package aiclassifier classifies media items the pattern matcher cannot
// resolve by asking a generative text backend, and caches every answer so
// each item is sent at most once.
package aiclassifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/holidarr/holidarr/internal/classcache"
	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/metrics"
)

// Defaults for Config.
const (
	DefaultMaxRetries     = 5
	DefaultInitialBackoff = 2 * time.Second
	DefaultBatchDelay     = time.Second
	DefaultMaxTokens      = 1024
)

// contentFilteredPayload is cached as the response of a refused request.
const contentFilteredPayload = `{"holidays":[],"contentFiltered":true}`

// Cache is the persistence the classifier needs.
type Cache interface {
	GetCached(ctx context.Context, externalID string) (*classcache.Record, error)
	Save(ctx context.Context, item media.Item, rec classcache.Record) error
}

// Config tunes retries and pacing.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	// BatchDelay is the minimum spacing between backend calls. Zero or
	// negative disables pacing.
	BatchDelay time.Duration
	MaxTokens  int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		BatchDelay:     DefaultBatchDelay,
		MaxTokens:      DefaultMaxTokens,
	}
}

// Result is the outcome of classifying one item. Classifications only holds
// entries at or above the actionable confidence floor.
type Result struct {
	ExternalID      string                   `json:"externalId"`
	Classifications []holiday.Classification `json:"classifications"`
	Model           string                   `json:"model,omitempty"`
	Cached          bool                     `json:"cached"`
	ContentFiltered bool                     `json:"contentFiltered,omitempty"`
}

// Classifier is safe for concurrent use. Two concurrent calls for the same
// item may both reach the backend; the cache keeps the first answer.
type Classifier struct {
	backend Backend
	cache   Cache
	limiter *rate.Limiter
	config  Config
	metrics *metrics.Metrics
	logger  zerolog.Logger

	// onBackoff observes each retry delay. Tests only.
	onBackoff func(time.Duration)
}

// New creates a classifier. A nil backend means no credentials were
// configured.
func New(backend Backend, cache Cache, cfg Config, m *metrics.Metrics, logger zerolog.Logger) (*Classifier, error) {
	if backend == nil {
		return nil, ErrMissingCredentials
	}
	if cache == nil {
		return nil, errors.New("classification cache is required")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	limit := rate.Inf
	if cfg.BatchDelay > 0 {
		limit = rate.Every(cfg.BatchDelay)
	}

	return &Classifier{
		backend: backend,
		cache:   cache,
		limiter: rate.NewLimiter(limit, 1),
		config:  cfg,
		metrics: m,
		logger: logger.With().
			Str("component", "aiclassifier").
			Str("provider", backend.Name()).
			Str("model", backend.Model()).
			Logger(),
	}, nil
}

// Model returns the backend's configured model.
func (c *Classifier) Model() string {
	return c.backend.Model()
}

// Classify returns the cached result for item or asks the backend.
//
// Rate-limited calls are retried with exponential backoff, preferring the
// backend's retry-after hint. A content-filter refusal is cached and
// returned as an empty result. Other failures, including unparseable
// output, are returned without writing anything. Cache writes outlive ctx
// cancellation; a failed write is logged and the result is still returned.
func (c *Classifier) Classify(ctx context.Context, item media.Item) (*Result, error) {
	id := media.ExternalID(item)

	rec, err := c.cache.GetCached(ctx, id)
	switch {
	case err == nil:
		c.metrics.IncCacheLookup(metrics.CacheHit, 1)
		return &Result{
			ExternalID:      id,
			Classifications: holiday.FilterActionable(rec.Classifications, nil),
			Model:           rec.Model,
			Cached:          true,
		}, nil
	case errors.Is(err, classcache.ErrNotFound):
		c.metrics.IncCacheLookup(metrics.CacheMiss, 1)
	default:
		c.metrics.IncCacheLookup(metrics.CacheError, 1)
		c.logger.Warn().Err(err).Str("externalId", id).Msg("Cache lookup failed, classifying anyway")
	}

	payload, err := BuildPayload(item)
	if err != nil {
		return nil, err
	}

	completion, err := c.complete(ctx, Request{
		System:    systemPrompt,
		User:      payload,
		MaxTokens: c.config.MaxTokens,
	})
	if errors.Is(err, ErrContentFiltered) {
		return c.contentFiltered(ctx, item, payload), nil
	}
	if err != nil {
		c.logger.Error().Err(err).Str("externalId", id).Msg("Classification failed")
		return nil, err
	}

	classifications, err := c.parse(id, completion.Content)
	if err != nil {
		c.logger.Error().Err(err).Str("externalId", id).Str("content", truncate(completion.Content, 500)).Msg("Unparseable classification response")
		return nil, err
	}

	result := &Result{
		ExternalID:      id,
		Classifications: classifications,
		Model:           completion.Model,
	}

	raw := completion.Raw
	if raw == "" {
		raw = completion.Content
	}
	c.save(ctx, item, classcache.Record{
		ExternalID:      id,
		Model:           completion.Model,
		Classifications: classifications,
		RequestPayload:  payload,
		ResponsePayload: raw,
	})

	c.logger.Info().
		Str("externalId", id).
		Str("title", item.Meta().Title).
		Int("holidays", len(classifications)).
		Msg("Classified media item")
	return result, nil
}

func (c *Classifier) contentFiltered(ctx context.Context, item media.Item, payload string) *Result {
	id := media.ExternalID(item)
	c.logger.Warn().Str("externalId", id).Str("title", item.Meta().Title).Msg("Content filter rejected request, caching empty result")

	c.save(ctx, item, classcache.Record{
		ExternalID:      id,
		Model:           c.backend.Model(),
		RequestPayload:  payload,
		ResponsePayload: contentFilteredPayload,
	})
	return &Result{
		ExternalID:      id,
		Classifications: []holiday.Classification{},
		Model:           c.backend.Model(),
		ContentFiltered: true,
	}
}

func (c *Classifier) save(ctx context.Context, item media.Item, rec classcache.Record) {
	if err := c.cache.Save(context.WithoutCancel(ctx), item, rec); err != nil {
		c.logger.Error().Err(err).Str("externalId", rec.ExternalID).Msg("Failed to cache classification")
	}
}

// complete calls the backend under the pacing limiter, retrying only on
// rate limits. It returns after at most MaxRetries+1 attempts.
func (c *Classifier) complete(ctx context.Context, req Request) (*Completion, error) {
	var (
		completion *Completion
		attempts   int
		retryAfter time.Duration
	)

	schedule := retry.WithMaxRetries(uint64(c.config.MaxRetries), retry.NewExponential(c.config.InitialBackoff))
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := schedule.Next()
		if stop {
			return 0, true
		}
		if retryAfter > 0 {
			next, retryAfter = retryAfter, 0
		}
		c.metrics.IncRetry()
		c.logger.Warn().Int("attempt", attempts).Dur("nextRetryIn", next).Msg("Rate limited, will retry")
		if c.onBackoff != nil {
			c.onBackoff(next)
		}
		return next, false
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		attempts++

		start := time.Now()
		res, err := c.backend.Complete(ctx, req)
		elapsed := time.Since(start)

		var rateErr *RateLimitError
		switch {
		case err == nil:
			c.metrics.ObserveAIRequest(metrics.OutcomeSuccess, elapsed)
			completion = res
			return nil
		case errors.As(err, &rateErr):
			c.metrics.ObserveAIRequest(metrics.OutcomeRateLimited, elapsed)
			retryAfter = rateErr.RetryAfter
			return retry.RetryableError(err)
		case errors.Is(err, ErrContentFiltered):
			c.metrics.ObserveAIRequest(metrics.OutcomeContentFilter, elapsed)
			return err
		default:
			c.metrics.ObserveAIRequest(metrics.OutcomeError, elapsed)
			return err
		}
	})
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			return nil, fmt.Errorf("gave up after %d attempts: %w", attempts, err)
		}
		return nil, err
	}
	return completion, nil
}

// ClassifyBatch classifies items in input order. Failed items are logged and
// left out of the result. Cancelling ctx stops before the next item.
func (c *Classifier) ClassifyBatch(ctx context.Context, items []media.Item) map[string]*Result {
	out := make(map[string]*Result, len(items))
	for i, item := range items {
		if ctx.Err() != nil {
			c.logger.Info().Int("remaining", len(items)-i).Msg("Batch classification cancelled")
			break
		}
		res, err := c.Classify(ctx, item)
		if err != nil {
			c.logger.Warn().Err(err).Str("externalId", media.ExternalID(item)).Msg("Skipping item after classification failure")
			continue
		}
		out[res.ExternalID] = res
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
