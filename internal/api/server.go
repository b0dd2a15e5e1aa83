// Package api exposes holiday matching, bulk classification and the
// supporting maintenance endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/api/handlers"
	apimw "github.com/holidarr/holidarr/internal/api/middleware"
	"github.com/holidarr/holidarr/internal/api/ratelimit"
	"github.com/holidarr/holidarr/internal/classcache"
	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/logger"
	"github.com/holidarr/holidarr/internal/matcher"
	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/orchestrator"
	"github.com/holidarr/holidarr/internal/progress"
	"github.com/holidarr/holidarr/internal/scheduler"
)

// Orchestrator runs classification and matching. *orchestrator.Service
// satisfies it.
type Orchestrator interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Summary, error)
	Match(ctx context.Context, items []media.Item, holidays []holiday.Holiday, threshold int) []matcher.HolidayMatch
	AIEnabled() bool
}

// ClassificationReader looks up cached classifications.
type ClassificationReader interface {
	GetCached(ctx context.Context, externalID string) (*classcache.Record, error)
}

// CorpusManager maintains the title corpus cache.
type CorpusManager interface {
	ClearCache(ctx context.Context) error
	Refresh(ctx context.Context) (map[holiday.Holiday][]string, error)
}

// ActivityLister lists tracked activities.
type ActivityLister interface {
	GetAllActivities() []*progress.Activity
}

// LogsProvider returns buffered log entries.
type LogsProvider interface {
	RecentLogs(n int) []logger.LogEntry
}

// Database reports store health and schema state.
type Database interface {
	Ping(ctx context.Context) error
	MigrationVersion() (int64, error)
}

// Deps are the services the API serves. Nil optional fields disable their
// routes: Corpus, Scheduler, Activities, WebSocket, Logs and Metrics.
type Deps struct {
	Orchestrator Orchestrator
	Cache        ClassificationReader
	DB           Database

	Corpus     CorpusManager
	Scheduler  *scheduler.Scheduler
	Activities ActivityLister
	WebSocket  echo.HandlerFunc
	Logs       LogsProvider
	Metrics    prometheus.Gatherer
	Tokens     apimw.TokenValidator

	Version           string
	ClassifyPerMinute int
}

// Server handles HTTP requests for the API.
type Server struct {
	echo      *echo.Echo
	deps      Deps
	logger    zerolog.Logger
	startedAt time.Time
}

// NewServer creates a new API server instance.
func NewServer(deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		deps:      deps,
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	if s.deps.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{})))
	}

	api := s.echo.Group("/api/v1", apimw.Auth(s.deps.Tokens))
	api.GET("/status", s.getStatus)

	classifyLimit := ratelimit.NewIPLimiter(s.deps.ClassifyPerMinute, ratelimit.DefaultBurst)
	h := api.Group("/holidays")
	h.GET("", s.listHolidays)
	h.POST("/match", s.matchHolidays)
	h.POST("/classify", s.classify, classifyLimit.Middleware())

	api.GET("/classifications/:externalId", s.getClassification)

	if s.deps.Corpus != nil {
		corpus := api.Group("/corpus")
		corpus.POST("/refresh", s.refreshCorpus)
		corpus.DELETE("/cache", s.clearCorpusCache)
	}
	if s.deps.Scheduler != nil {
		handlers.NewSchedulerHandler(s.deps.Scheduler).RegisterRoutes(api.Group("/scheduler"))
	}
	if s.deps.Activities != nil {
		api.GET("/activities", s.listActivities)
	}
	if s.deps.Logs != nil {
		NewLogsHandlers(s.deps.Logs).RegisterRoutes(api.Group("/logs"))
	}
	if s.deps.WebSocket != nil {
		api.GET("/ws", s.deps.WebSocket)
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("Starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	status := map[string]any{
		"version":       s.deps.Version,
		"startTime":     s.startedAt.Format(time.RFC3339),
		"aiEnabled":     s.deps.Orchestrator.AIEnabled(),
		"corpusEnabled": s.deps.Corpus != nil,
	}
	if s.deps.DB != nil {
		version, err := s.deps.DB.MigrationVersion()
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to read schema version")
		} else {
			status["schemaVersion"] = version
		}
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) listActivities(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Activities.GetAllActivities())
}
