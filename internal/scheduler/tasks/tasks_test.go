package tasks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/mediaserver"
	"github.com/holidarr/holidarr/internal/orchestrator"
	"github.com/holidarr/holidarr/internal/progress"
	"github.com/holidarr/holidarr/internal/testutil"
)

type recordingTracker struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTracker) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingTracker) StartActivity(_ string, typ progress.ActivityType, _ string) {
	r.add("start:" + string(typ))
}
func (r *recordingTracker) UpdateActivity(string, string, int)  {}
func (r *recordingTracker) CompleteActivity(_, subtitle string) { r.add("complete:" + subtitle) }
func (r *recordingTracker) FailActivity(_, msg string)          { r.add("fail:" + msg) }
func (r *recordingTracker) CancelActivity(string)               { r.add("cancel") }

func (r *recordingTracker) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fakeCorpus struct {
	titles map[holiday.Holiday][]string
	err    error
}

func (f fakeCorpus) Refresh(context.Context) (map[holiday.Holiday][]string, error) {
	return f.titles, f.err
}

func TestCorpusRefreshTask(t *testing.T) {
	tracker := &recordingTracker{}
	task := NewCorpusRefreshTask(fakeCorpus{titles: map[holiday.Holiday][]string{
		holiday.Christmas: {"klaus", "elf"},
		holiday.Halloween: {"hocus pocus"},
	}}, tracker, testutil.NopLogger())

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, []string{"start:corpus-refresh", "complete:3 titles across 2 holidays"}, tracker.events)
}

func TestCorpusRefreshTaskFailure(t *testing.T) {
	tracker := &recordingTracker{}
	task := NewCorpusRefreshTask(fakeCorpus{err: errors.New("cache down")}, tracker, testutil.NopLogger())

	err := task.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "fail:cache down", tracker.last())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, NewCorpusRefreshTask(fakeCorpus{err: context.Canceled}, tracker, testutil.NopLogger()).Run(ctx))
	assert.Equal(t, "cancel", tracker.last())
}

type ensureCall struct {
	section, name string
	kind          media.Kind
	ids           []string
}

type fakeServer struct {
	episodes map[string][]*media.Episode
	movies   map[string][]*media.Movie

	mu       sync.Mutex
	calls    []ensureCall
	failName string
}

func (f *fakeServer) ListEpisodes(_ context.Context, ref string) ([]*media.Episode, error) {
	return f.episodes[ref], nil
}

func (f *fakeServer) ListMovies(_ context.Context, ref string) ([]*media.Movie, error) {
	return f.movies[ref], nil
}

func (f *fakeServer) EnsureCollection(_ context.Context, section, name string, kind media.Kind, items []media.Item) (int, error) {
	if name == f.failName {
		return 0, errors.New("plex said no")
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, media.ExternalID(item))
	}
	sort.Strings(ids)
	f.mu.Lock()
	f.calls = append(f.calls, ensureCall{section: section, name: name, kind: kind, ids: ids})
	f.mu.Unlock()
	return len(items), nil
}

type fakeRunner struct {
	req     orchestrator.Request
	summary *orchestrator.Summary
	err     error
}

func (f *fakeRunner) Run(_ context.Context, req orchestrator.Request) (*orchestrator.Summary, error) {
	f.req = req
	return f.summary, f.err
}

func TestCollectionSyncTask(t *testing.T) {
	klaus := testutil.Movie("m1", "Klaus", 2019)
	elf := testutil.Movie("m2", "Elf", 2003)
	thoh := testutil.Episode("e1", "The Simpsons", "Treehouse of Horror", 2, 3)

	server := &fakeServer{
		episodes: map[string][]*media.Episode{"1": {thoh}},
		movies:   map[string][]*media.Movie{"2": {klaus}, "3": {elf}},
	}
	runner := &fakeRunner{summary: &orchestrator.Summary{Groups: []orchestrator.Group{
		{Name: "Christmas Movies", Holiday: holiday.Christmas, Kind: media.KindMovie, Items: []media.Item{klaus, elf}},
		{Name: "Halloween TV", Holiday: holiday.Halloween, Kind: media.KindEpisode, Items: []media.Item{thoh}},
	}}}
	tracker := &recordingTracker{}

	task := NewCollectionSyncTask(server, runner, CollectionSyncConfig{
		Sections: mediaserver.Sections{Shows: []string{"1"}, Movies: []string{"2", "3"}},
		Holidays: []holiday.Holiday{holiday.Christmas, holiday.Halloween},
		UseAI:    true,
	}, tracker, testutil.NopLogger())

	require.NoError(t, task.Run(context.Background()))

	assert.Len(t, runner.req.Media, 3)
	assert.True(t, runner.req.UseAI)
	assert.Equal(t, []holiday.Holiday{holiday.Christmas, holiday.Halloween}, runner.req.SelectedHolidays)

	sort.Slice(server.calls, func(i, j int) bool { return server.calls[i].section < server.calls[j].section })
	assert.Equal(t, []ensureCall{
		{section: "1", name: "Halloween TV", kind: media.KindEpisode, ids: []string{"e1"}},
		{section: "2", name: "Christmas Movies", kind: media.KindMovie, ids: []string{"m1"}},
		{section: "3", name: "Christmas Movies", kind: media.KindMovie, ids: []string{"m2"}},
	}, server.calls)
	assert.Equal(t, "complete:3 collections, 3 items added", tracker.last())
}

func TestCollectionSyncContinuesPastFailures(t *testing.T) {
	klaus := testutil.Movie("m1", "Klaus", 2019)
	thoh := testutil.Episode("e1", "The Simpsons", "Treehouse of Horror", 2, 3)
	server := &fakeServer{
		episodes: map[string][]*media.Episode{"1": {thoh}},
		movies:   map[string][]*media.Movie{"2": {klaus}},
		failName: "Christmas Movies",
	}
	runner := &fakeRunner{summary: &orchestrator.Summary{Groups: []orchestrator.Group{
		{Name: "Christmas Movies", Kind: media.KindMovie, Items: []media.Item{klaus}},
		{Name: "Halloween TV", Kind: media.KindEpisode, Items: []media.Item{thoh}},
	}}}
	tracker := &recordingTracker{}
	task := NewCollectionSyncTask(server, runner, CollectionSyncConfig{
		Sections: mediaserver.Sections{Shows: []string{"1"}, Movies: []string{"2"}},
	}, tracker, testutil.NopLogger())

	err := task.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plex said no")
	require.Len(t, server.calls, 1)
	assert.Equal(t, "Halloween TV", server.calls[0].name)
	assert.Contains(t, tracker.last(), "fail:")
}

func TestCollectionSyncEmptyLibrary(t *testing.T) {
	runner := &fakeRunner{err: errors.New("must not run")}
	tracker := &recordingTracker{}
	task := NewCollectionSyncTask(&fakeServer{}, runner, CollectionSyncConfig{}, tracker, testutil.NopLogger())

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, "complete:No items in configured sections", tracker.last())
}
