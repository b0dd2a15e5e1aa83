package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/progress"
	"github.com/holidarr/holidarr/internal/scheduler"
)

const CorpusRefreshTaskID = "corpus-refresh"

// Tracker reports task progress to clients. *progress.Manager satisfies it.
type Tracker interface {
	StartActivity(id string, activityType progress.ActivityType, title string)
	UpdateActivity(id, subtitle string, progress int)
	CompleteActivity(id, subtitle string)
	FailActivity(id, errorMsg string)
	CancelActivity(id string)
}

// CorpusSource clears its cached titles and refetches them on Refresh.
type CorpusSource interface {
	Refresh(ctx context.Context) (map[holiday.Holiday][]string, error)
}

// CorpusRefreshTask drops cached corpus titles and fetches them again.
type CorpusRefreshTask struct {
	corpus  CorpusSource
	tracker Tracker
	logger  zerolog.Logger
}

// NewCorpusRefreshTask creates the task. tracker may be nil.
func NewCorpusRefreshTask(corpus CorpusSource, tracker Tracker, logger zerolog.Logger) *CorpusRefreshTask {
	if tracker == nil {
		tracker = nopTracker{}
	}
	return &CorpusRefreshTask{
		corpus:  corpus,
		tracker: tracker,
		logger:  logger.With().Str("task", CorpusRefreshTaskID).Logger(),
	}
}

// Run executes the refresh.
func (t *CorpusRefreshTask) Run(ctx context.Context) error {
	id := CorpusRefreshTaskID + "-" + uuid.NewString()
	t.tracker.StartActivity(id, progress.ActivityTypeCorpusRefresh, "Refreshing holiday title corpus")

	t.tracker.UpdateActivity(id, "Fetching title lists", -1)

	titles, err := t.corpus.Refresh(ctx)
	if err != nil {
		failActivity(ctx, t.tracker, id, err)
		return fmt.Errorf("refresh corpus: %w", err)
	}

	total := 0
	for _, list := range titles {
		total += len(list)
	}
	t.logger.Info().Int("holidays", len(titles)).Int("titles", total).Msg("Corpus refreshed")
	t.tracker.CompleteActivity(id, fmt.Sprintf("%d titles across %d holidays", total, len(titles)))
	return nil
}

// RegisterCorpusRefreshTask registers the refresh with the scheduler. An
// empty cron leaves it manual-only.
func RegisterCorpusRefreshTask(sched *scheduler.Scheduler, task *CorpusRefreshTask, cron string) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CorpusRefreshTaskID,
		Name:        "Refresh Title Corpus",
		Description: "Clears cached holiday title lists and fetches them again",
		Cron:        cron,
		Func:        task.Run,
	})
}

// failActivity records err, or a cancellation when ctx is done.
func failActivity(ctx context.Context, tracker Tracker, id string, err error) {
	if ctx.Err() != nil {
		tracker.CancelActivity(id)
		return
	}
	tracker.FailActivity(id, err.Error())
}

type nopTracker struct{}

func (nopTracker) StartActivity(string, progress.ActivityType, string) {}
func (nopTracker) UpdateActivity(string, string, int)                  {}
func (nopTracker) CompleteActivity(string, string)                     {}
func (nopTracker) FailActivity(string, string)                         {}
func (nopTracker) CancelActivity(string)                               {}
