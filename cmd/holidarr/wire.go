package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/aiclassifier"
	"github.com/holidarr/holidarr/internal/classcache"
	"github.com/holidarr/holidarr/internal/config"
	"github.com/holidarr/holidarr/internal/corpus"
	"github.com/holidarr/holidarr/internal/database"
	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/logger"
	"github.com/holidarr/holidarr/internal/mediaserver"
	"github.com/holidarr/holidarr/internal/mediaserver/plex"
	"github.com/holidarr/holidarr/internal/metrics"
	"github.com/holidarr/holidarr/internal/orchestrator"
	"github.com/holidarr/holidarr/internal/patterns"
	"github.com/holidarr/holidarr/internal/progress"
	"github.com/holidarr/holidarr/internal/scheduler"
	"github.com/holidarr/holidarr/internal/scheduler/tasks"
	"github.com/holidarr/holidarr/internal/startup"
	"github.com/holidarr/holidarr/internal/websocket"
)

// application holds the wired services.
type application struct {
	db           *database.DB
	store        *classcache.Store
	corpus       *corpus.Fetcher // nil when the corpus is disabled
	orchestrator *orchestrator.Service
	progress     *progress.Manager
	scheduler    *scheduler.Scheduler
	registry     *prometheus.Registry // nil when metrics are disabled

	log     zerolog.Logger
	closers []closer
}

type closer struct {
	name  string
	close func() error
}

func (a *application) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.log.Error().Err(err).Str("resource", c.name).Msg("failed to close")
		}
	}
}

func wire(ctx context.Context, cfg *config.Config, log *logger.Logger, hub *websocket.Hub) (app *application, err error) {
	app = &application{log: log.Logger}
	partial := app
	defer func() {
		if err != nil {
			partial.close()
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		app.registry = prometheus.NewRegistry()
		app.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(app.registry)
	}

	if app.db, err = openDatabase(ctx, cfg.Database, log.WithComponent("database")); err != nil {
		return nil, err
	}
	app.onClose("database", app.db.Close)
	if err = app.db.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	library, err := patterns.LoadFile(cfg.Matcher.PatternsFile)
	if err != nil {
		return nil, err
	}
	if err = library.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pattern library: %w", err)
	}

	app.store = classcache.New(app.db.X(), log.Logger)
	app.progress = progress.NewManager(hub, log.Logger)

	app.orchestrator = orchestrator.NewService(app.store, library, log.Logger)
	app.orchestrator.SetThreshold(cfg.Matcher.Threshold)
	app.orchestrator.SetMetrics(m)
	app.orchestrator.SetObserver(orchestrator.Observers{
		orchestrator.NewLogObserver(log.Logger),
		app.progress,
	})

	if cfg.Corpus.Enabled {
		cache, closeCache, err := corpusCache(ctx, cfg.Corpus, app.db, log.WithComponent("corpus"))
		if err != nil {
			return nil, err
		}
		app.onClose("corpus cache", closeCache)
		app.corpus = corpus.NewFetcher(corpus.Config{
			BaseURL: cfg.Corpus.BaseURL,
			TTL:     cfg.Corpus.TTL,
			Timeout: cfg.Corpus.Timeout,
		}, cache, m, log.Logger)
		app.orchestrator.SetTitleSource(app.corpus)
	}

	if cfg.AI.Enabled {
		classifier, err := newClassifier(cfg.AI, app.store, m, log.Logger)
		switch {
		case errors.Is(err, aiclassifier.ErrMissingCredentials):
			log.Warn().Str("provider", cfg.AI.Provider).Msg("AI classification enabled without an API key, disabling")
		case err != nil:
			return nil, err
		default:
			app.orchestrator.SetClassifier(classifier)
			log.Info().Str("provider", cfg.AI.Provider).Str("model", classifier.Model()).Msg("AI classification enabled")
		}
	}

	if app.scheduler, err = scheduler.New(log.Logger); err != nil {
		return nil, err
	}
	if err = registerTasks(ctx, cfg, app, log); err != nil {
		return nil, err
	}
	return app, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*database.DB, error) {
	var db *database.DB
	err := startup.WithRetry(ctx, "database connection", startup.DefaultRetryConfig(), func(ctx context.Context) error {
		var err error
		db, err = database.Open(ctx, database.Config{Driver: cfg.Driver, Path: cfg.Path, DSN: cfg.DSN})
		return err
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func corpusCache(ctx context.Context, cfg config.CorpusConfig, db *database.DB, log zerolog.Logger) (corpus.TitleCache, func() error, error) {
	if cfg.Cache != "redis" {
		return corpus.NewSQLCache(db.X()), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cache := corpus.NewRedisCache(client)
	err := startup.WithRetry(ctx, "redis connection", startup.DefaultRetryConfig(), cache.Ping, log)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return cache, client.Close, nil
}

func newClassifier(cfg config.AIConfig, store *classcache.Store, m *metrics.Metrics, log zerolog.Logger) (*aiclassifier.Classifier, error) {
	backend, err := aiclassifier.NewBackend(aiclassifier.BackendConfig{
		Provider:   cfg.Provider,
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		APIVersion: cfg.APIVersion,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return aiclassifier.New(backend, store, aiclassifier.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		BatchDelay:     cfg.BatchDelay,
		MaxTokens:      cfg.MaxTokens,
	}, m, log)
}

func registerTasks(ctx context.Context, cfg *config.Config, app *application, log *logger.Logger) error {
	if app.corpus != nil {
		task := tasks.NewCorpusRefreshTask(app.corpus, app.progress, log.Logger)
		if err := tasks.RegisterCorpusRefreshTask(app.scheduler, task, cfg.Scheduler.CorpusRefreshCron); err != nil {
			return err
		}
	}

	if !cfg.Plex.Configured() {
		return nil
	}
	holidays, err := holiday.ParseAll(cfg.Plex.Holidays)
	if err != nil {
		return fmt.Errorf("plex.holidays: %w", err)
	}
	client, err := plex.NewClient(plex.Config{
		ServerURL: cfg.Plex.ServerURL,
		Token:     cfg.Plex.Token,
		Timeout:   30 * time.Second,
	}, config.Version, log.Logger)
	if err != nil {
		return err
	}
	plexLog := log.WithComponent("plex")
	if err := startup.WithRetry(ctx, "plex connection", startup.DefaultRetryConfig(), client.TestConnection, plexLog); err != nil {
		// The sync task reports the failure on each run.
		plexLog.Warn().Err(err).Msg("Plex is unreachable at startup")
	}

	task := tasks.NewCollectionSyncTask(client, app.orchestrator, tasks.CollectionSyncConfig{
		Sections: mediaserver.Sections{Movies: cfg.Plex.MovieSections, Shows: cfg.Plex.ShowSections},
		Holidays: holidays,
		UseAI:    cfg.Plex.UseAI,
	}, app.progress, log.Logger)
	return tasks.RegisterCollectionSyncTask(app.scheduler, task, cfg.Scheduler.CollectionSyncCron)
}
