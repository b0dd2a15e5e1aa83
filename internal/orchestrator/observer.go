package orchestrator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/media"
)

// Outcome is what happened to one item during a run.
type Outcome string

const (
	OutcomeCached          Outcome = "cached"
	OutcomeClassified      Outcome = "classified"
	OutcomeContentFiltered Outcome = "content_filtered"
	OutcomeFailed          Outcome = "failed"
)

// RunInfo identifies a run to observers.
type RunInfo struct {
	ID                  string    `json:"id"`
	Total               int       `json:"total"`
	NeedsClassification int       `json:"needsClassification"`
	UseAI               bool      `json:"useAi"`
	StartedAt           time.Time `json:"startedAt"`
}

// Observer receives progress from a run. Implementations must not block.
type Observer interface {
	RunStarted(run RunInfo)
	ItemProcessed(run RunInfo, index int, item media.Item, outcome Outcome, err error)
	RunFinished(run RunInfo, summary *Summary, err error)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) RunStarted(run RunInfo) {
	for _, obs := range o {
		obs.RunStarted(run)
	}
}

func (o Observers) ItemProcessed(run RunInfo, index int, item media.Item, outcome Outcome, err error) {
	for _, obs := range o {
		obs.ItemProcessed(run, index, item, outcome, err)
	}
}

func (o Observers) RunFinished(run RunInfo, summary *Summary, err error) {
	for _, obs := range o {
		obs.RunFinished(run, summary, err)
	}
}

// LogObserver writes run progress to a zerolog logger.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver creates the default observer.
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With().Str("component", "orchestrator").Logger()}
}

func (l *LogObserver) RunStarted(run RunInfo) {
	l.logger.Info().
		Str("runId", run.ID).
		Int("total", run.Total).
		Int("needsClassification", run.NeedsClassification).
		Bool("useAI", run.UseAI).
		Msg("Holiday classification run started")
}

func (l *LogObserver) ItemProcessed(run RunInfo, index int, item media.Item, outcome Outcome, err error) {
	ev := l.logger.Debug()
	if outcome == OutcomeFailed {
		ev = l.logger.Warn().Err(err)
	}
	ev.Str("runId", run.ID).
		Int("index", index).
		Str("externalId", media.ExternalID(item)).
		Str("title", item.Meta().Title).
		Str("outcome", string(outcome)).
		Msg("Item processed")
}

func (l *LogObserver) RunFinished(run RunInfo, summary *Summary, err error) {
	ev := l.logger.Info()
	if err != nil {
		ev = l.logger.Warn().Err(err)
	}
	if summary != nil {
		ev = ev.Int("cached", summary.Cached).
			Int("classified", summary.Classified).
			Int("failed", summary.Failed).
			Int("groups", len(summary.Groups))
	}
	ev.Str("runId", run.ID).
		Dur("elapsed", time.Since(run.StartedAt)).
		Msg("Holiday classification run finished")
}
