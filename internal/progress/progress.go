// Package progress tracks long-running activities (classification runs,
// corpus refreshes, collection syncs) and broadcasts their state to
// connected WebSocket clients.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/orchestrator"
)

// ActivityType identifies the type of activity being tracked.
type ActivityType string

const (
	ActivityTypeClassification ActivityType = "classification"
	ActivityTypeCorpusRefresh  ActivityType = "corpus-refresh"
	ActivityTypeCollectionSync ActivityType = "collection-sync"
)

// Status represents the current state of an activity.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Activity represents a trackable activity with progress.
type Activity struct {
	ID          string         `json:"id"`
	Type        ActivityType   `json:"type"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	Progress    int            `json:"progress"` // 0-100, -1 for indeterminate
	Status      Status         `json:"status"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
	Metadata    map[string]any `json:"metadata"`
}

// EventType identifies the type of progress event.
type EventType string

const (
	EventTypeStarted   EventType = "progress:started"
	EventTypeUpdate    EventType = "progress:update"
	EventTypeCompleted EventType = "progress:completed"
	EventTypeError     EventType = "progress:error"
	EventTypeCancelled EventType = "progress:cancelled"
)

// Broadcaster sends events to clients.
type Broadcaster interface {
	Broadcast(msgType string, payload any) error
}

// Manager tracks and broadcasts progress for all activities. Finished
// activities stay visible for the retention period.
type Manager struct {
	broadcaster Broadcaster
	activities  map[string]*Activity
	retention   time.Duration
	mu          sync.RWMutex
	logger      zerolog.Logger
}

// DefaultRetention is how long finished activities remain listed.
const DefaultRetention = 10 * time.Second

// NewManager creates a progress manager. broadcaster may be nil.
func NewManager(broadcaster Broadcaster, logger zerolog.Logger) *Manager {
	return &Manager{
		broadcaster: broadcaster,
		activities:  make(map[string]*Activity),
		retention:   DefaultRetention,
		logger:      logger.With().Str("component", "progress").Logger(),
	}
}

// SetRetention changes how long finished activities remain listed.
func (m *Manager) SetRetention(d time.Duration) {
	m.mu.Lock()
	m.retention = d
	m.mu.Unlock()
}

// StartActivity creates and starts tracking a new activity.
func (m *Manager) StartActivity(id string, activityType ActivityType, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity := &Activity{
		ID:        id,
		Type:      activityType,
		Title:     title,
		Subtitle:  "Starting...",
		Status:    StatusInProgress,
		StartedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
	m.activities[id] = activity
	m.broadcast(EventTypeStarted, activity)

	m.logger.Debug().
		Str("id", id).
		Str("type", string(activityType)).
		Str("title", title).
		Msg("Activity started")
}

// UpdateActivity updates an existing activity's progress.
func (m *Manager) UpdateActivity(id, subtitle string, progress int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, exists := m.activities[id]
	if !exists {
		return
	}
	activity.Subtitle = subtitle
	activity.Progress = progress
	m.broadcast(EventTypeUpdate, activity)
}

// SetMetadata sets one metadata value on an activity.
func (m *Manager) SetMetadata(id, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if activity, exists := m.activities[id]; exists {
		activity.Metadata[key] = value
	}
}

// CompleteActivity marks an activity as completed.
func (m *Manager) CompleteActivity(id, subtitle string) {
	m.finish(id, StatusCompleted, EventTypeCompleted, subtitle)
}

// FailActivity marks an activity as failed.
func (m *Manager) FailActivity(id, errorMsg string) {
	m.mu.Lock()
	if activity, exists := m.activities[id]; exists {
		activity.Metadata["error"] = errorMsg
	}
	m.mu.Unlock()
	m.finish(id, StatusFailed, EventTypeError, errorMsg)
}

// CancelActivity marks an activity as cancelled.
func (m *Manager) CancelActivity(id string) {
	m.finish(id, StatusCancelled, EventTypeCancelled, "Cancelled")
}

func (m *Manager) finish(id string, status Status, event EventType, subtitle string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, exists := m.activities[id]
	if !exists {
		return
	}

	now := time.Now()
	activity.Status = status
	activity.Subtitle = subtitle
	activity.CompletedAt = &now
	if status == StatusCompleted {
		activity.Progress = 100
	}
	m.broadcast(event, activity)

	if m.retention <= 0 {
		delete(m.activities, id)
	} else {
		time.AfterFunc(m.retention, func() {
			m.mu.Lock()
			if a, ok := m.activities[id]; ok && a == activity {
				delete(m.activities, id)
			}
			m.mu.Unlock()
		})
	}

	m.logger.Debug().
		Str("id", id).
		Str("title", activity.Title).
		Str("status", string(status)).
		Msg("Activity finished")
}

// GetActivity returns a copy of an activity, or nil.
func (m *Manager) GetActivity(id string) *Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	activity, ok := m.activities[id]
	if !ok {
		return nil
	}
	return activity.clone()
}

// GetAllActivities returns copies of all tracked activities, oldest first.
func (m *Manager) GetAllActivities() []*Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Activity, 0, len(m.activities))
	for _, activity := range m.activities {
		result = append(result, activity.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result
}

func (a *Activity) clone() *Activity {
	c := *a
	c.Metadata = make(map[string]any, len(a.Metadata))
	for k, v := range a.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

// broadcast must be called with m.mu held.
func (m *Manager) broadcast(eventType EventType, activity *Activity) {
	if m.broadcaster == nil {
		return
	}
	if err := m.broadcaster.Broadcast(string(eventType), activity.clone()); err != nil {
		m.logger.Warn().Err(err).Str("id", activity.ID).Msg("Failed to broadcast progress")
	}
}

// RunStarted implements orchestrator.Observer.
func (m *Manager) RunStarted(run orchestrator.RunInfo) {
	m.StartActivity(run.ID, ActivityTypeClassification, fmt.Sprintf("Classifying %d items", run.Total))
	m.SetMetadata(run.ID, "needsClassification", run.NeedsClassification)
	m.SetMetadata(run.ID, "useAi", run.UseAI)
}

// ItemProcessed implements orchestrator.Observer.
func (m *Manager) ItemProcessed(run orchestrator.RunInfo, index int, item media.Item, outcome orchestrator.Outcome, _ error) {
	pct := 100
	if run.Total > 0 {
		pct = (index + 1) * 100 / run.Total
	}
	m.UpdateActivity(run.ID, fmt.Sprintf("%s: %s", outcome, item.Meta().Title), pct)
}

// RunFinished implements orchestrator.Observer.
func (m *Manager) RunFinished(run orchestrator.RunInfo, summary *orchestrator.Summary, err error) {
	if summary != nil {
		m.SetMetadata(run.ID, "cached", summary.Cached)
		m.SetMetadata(run.ID, "classified", summary.Classified)
		m.SetMetadata(run.ID, "failed", summary.Failed)
	}
	switch {
	case errors.Is(err, context.Canceled):
		m.CancelActivity(run.ID)
		return
	case err != nil:
		m.FailActivity(run.ID, err.Error())
		return
	}
	subtitle := "Done"
	if summary != nil {
		subtitle = fmt.Sprintf("%d cached, %d classified, %d failed", summary.Cached, summary.Classified, summary.Failed)
	}
	m.CompleteActivity(run.ID, subtitle)
}
