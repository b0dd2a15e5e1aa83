package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holidarr/holidarr/internal/orchestrator"
	"github.com/holidarr/holidarr/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	last   *Activity
}

func (r *recorder) Broadcast(msgType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, msgType)
	r.last = payload.(*Activity)
	return nil
}

func TestManagerTracksRun(t *testing.T) {
	rec := &recorder{}
	m := NewManager(rec, testutil.NopLogger())

	run := orchestrator.RunInfo{ID: "run-1", Total: 2, NeedsClassification: 1, UseAI: true, StartedAt: time.Now()}
	m.RunStarted(run)
	m.ItemProcessed(run, 0, testutil.Movie("a", "Klaus", 2019), orchestrator.OutcomeCached, nil)

	a := m.GetActivity("run-1")
	require.NotNil(t, a)
	assert.Equal(t, ActivityTypeClassification, a.Type)
	assert.Equal(t, 50, a.Progress)
	assert.Equal(t, "cached: Klaus", a.Subtitle)
	assert.Equal(t, 1, a.Metadata["needsClassification"])

	m.ItemProcessed(run, 1, testutil.Movie("b", "Elf", 2003), orchestrator.OutcomeClassified, nil)
	m.RunFinished(run, &orchestrator.Summary{Cached: 1, Classified: 1}, nil)

	a = m.GetActivity("run-1")
	require.NotNil(t, a)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, 100, a.Progress)
	assert.Equal(t, "1 cached, 1 classified, 0 failed", a.Subtitle)
	assert.NotNil(t, a.CompletedAt)

	assert.Equal(t, []string{
		string(EventTypeStarted),
		string(EventTypeUpdate),
		string(EventTypeUpdate),
		string(EventTypeCompleted),
	}, rec.events)
}

func TestManagerFailAndCancel(t *testing.T) {
	m := NewManager(nil, testutil.NopLogger())

	run := orchestrator.RunInfo{ID: "r-fail", Total: 1}
	m.RunStarted(run)
	m.RunFinished(run, nil, errors.New("boom"))
	a := m.GetActivity("r-fail")
	require.NotNil(t, a)
	assert.Equal(t, StatusFailed, a.Status)
	assert.Equal(t, "boom", a.Metadata["error"])

	run = orchestrator.RunInfo{ID: "r-cancel", Total: 1}
	m.RunStarted(run)
	m.RunFinished(run, &orchestrator.Summary{}, context.Canceled)
	a = m.GetActivity("r-cancel")
	require.NotNil(t, a)
	assert.Equal(t, StatusCancelled, a.Status)
}

func TestManagerRetention(t *testing.T) {
	m := NewManager(nil, testutil.NopLogger())
	m.SetRetention(0)

	m.StartActivity("x", ActivityTypeCorpusRefresh, "Refreshing")
	assert.Len(t, m.GetAllActivities(), 1)
	m.CompleteActivity("x", "done")
	assert.Nil(t, m.GetActivity("x"))

	m.SetRetention(20 * time.Millisecond)
	m.StartActivity("y", ActivityTypeCollectionSync, "Syncing")
	m.CompleteActivity("y", "done")
	assert.NotNil(t, m.GetActivity("y"))
	assert.Eventually(t, func() bool { return m.GetActivity("y") == nil }, time.Second, 5*time.Millisecond)
}

func TestGetActivityReturnsCopy(t *testing.T) {
	m := NewManager(nil, testutil.NopLogger())
	m.StartActivity("x", ActivityTypeCorpusRefresh, "Refreshing")
	a := m.GetActivity("x")
	a.Metadata["mutated"] = true
	a.Title = "changed"

	b := m.GetActivity("x")
	assert.Equal(t, "Refreshing", b.Title)
	assert.NotContains(t, b.Metadata, "mutated")
}
