package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/mediaserver"
	"github.com/holidarr/holidarr/internal/orchestrator"
	"github.com/holidarr/holidarr/internal/progress"
	"github.com/holidarr/holidarr/internal/scheduler"
)

const CollectionSyncTaskID = "collection-sync"

// Runner runs a bulk classification. *orchestrator.Service satisfies it.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Summary, error)
}

// CollectionSyncConfig selects what the sync enumerates and classifies.
type CollectionSyncConfig struct {
	Sections mediaserver.Sections
	Holidays []holiday.Holiday // empty selects every holiday
	UseAI    bool
}

// CollectionSyncTask classifies the configured library sections and makes
// sure every resulting group exists as a collection in the section its
// items came from.
type CollectionSyncTask struct {
	server  mediaserver.Server
	runner  Runner
	cfg     CollectionSyncConfig
	tracker Tracker
	logger  zerolog.Logger
}

// NewCollectionSyncTask creates the task. tracker may be nil.
func NewCollectionSyncTask(server mediaserver.Server, runner Runner, cfg CollectionSyncConfig, tracker Tracker, logger zerolog.Logger) *CollectionSyncTask {
	if tracker == nil {
		tracker = nopTracker{}
	}
	return &CollectionSyncTask{
		server:  server,
		runner:  runner,
		cfg:     cfg,
		tracker: tracker,
		logger:  logger.With().Str("task", CollectionSyncTaskID).Logger(),
	}
}

// Run executes one sync. A failed collection does not stop the others; the
// joined errors are returned.
func (t *CollectionSyncTask) Run(ctx context.Context) error {
	id := CollectionSyncTaskID + "-" + uuid.NewString()
	t.tracker.StartActivity(id, progress.ActivityTypeCollectionSync, "Syncing holiday collections")

	t.tracker.UpdateActivity(id, "Listing library sections", -1)
	items, origin, err := mediaserver.CollectItems(ctx, t.server, t.cfg.Sections)
	if err != nil {
		failActivity(ctx, t.tracker, id, err)
		return err
	}
	if len(items) == 0 {
		t.tracker.CompleteActivity(id, "No items in configured sections")
		return nil
	}

	t.tracker.UpdateActivity(id, fmt.Sprintf("Classifying %d items", len(items)), -1)
	summary, err := t.runner.Run(ctx, orchestrator.Request{
		Media:            items,
		SelectedHolidays: t.cfg.Holidays,
		UseAI:            t.cfg.UseAI,
	})
	if err != nil {
		failActivity(ctx, t.tracker, id, err)
		return fmt.Errorf("classify library: %w", err)
	}

	var (
		errs    []error
		added   int
		touched int
	)
	for i, group := range summary.Groups {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		for section, members := range bySection(group.Items, origin) {
			n, err := t.server.EnsureCollection(ctx, section, group.Name, group.Kind, members)
			if err != nil {
				t.logger.Warn().Err(err).Str("collection", group.Name).Str("section", section).Msg("Failed to sync collection")
				errs = append(errs, fmt.Errorf("collection %q in section %s: %w", group.Name, section, err))
				continue
			}
			added += n
			touched++
		}
		t.tracker.UpdateActivity(id, group.Name, (i+1)*100/len(summary.Groups))
	}

	t.logger.Info().
		Int("items", len(items)).
		Int("groups", len(summary.Groups)).
		Int("collections", touched).
		Int("added", added).
		Int("errors", len(errs)).
		Msg("Collection sync finished")

	if err := errors.Join(errs...); err != nil {
		failActivity(ctx, t.tracker, id, err)
		return err
	}
	t.tracker.CompleteActivity(id, fmt.Sprintf("%d collections, %d items added", touched, added))
	return nil
}

// bySection splits a group's items by the library section they came from.
func bySection(items []media.Item, origin map[string]string) map[string][]media.Item {
	out := make(map[string][]media.Item)
	for _, item := range items {
		section, ok := origin[media.ExternalID(item)]
		if !ok {
			continue
		}
		out[section] = append(out[section], item)
	}
	return out
}

// RegisterCollectionSyncTask registers the sync with the scheduler. An empty
// cron leaves it manual-only.
func RegisterCollectionSyncTask(sched *scheduler.Scheduler, task *CollectionSyncTask, cron string) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CollectionSyncTaskID,
		Name:        "Sync Holiday Collections",
		Description: "Classifies the configured library sections and updates holiday collections",
		Cron:        cron,
		Func:        task.Run,
	})
}
