package corpus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/matcher"
	"github.com/holidarr/holidarr/internal/patterns"
	"github.com/holidarr/holidarr/internal/testutil"
)

const christmasPage = `<html><body><div class="mw-parser-output">
<table class="wikitable">
<tr><th>Title</th><th>Year</th></tr>
<tr><td><i><a href="/wiki/Happiest_Season">Happiest Season</a></i></td><td>2020</td></tr>
<tr><td><i>The Holiday (film)</i><sup>[3]</sup></td><td>2006</td></tr>
<tr><td><i>Happiest Season</i></td><td>2020</td></tr>
<tr><td><i>Elf</i></td><td>2003</td></tr>
</table>
<div class="div-col"><ul>
<li><i>Mickey's Once Upon a Christmas (1999)</i></li>
<li><i>A Flintstone Christmas (TV special)</i></li>
</ul></div>
</div></body></html>`

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Klaus (film)", "Klaus"},
		{"A Flintstone Christmas (TV special)", "A Flintstone Christmas"},
		{"Jingle All the Way (1996)", "Jingle All the Way"},
		{"Scrooge (1970 film) (musical)", "Scrooge"},
		{"  Black   Christmas[12] ", "Black Christmas"},
		{`"Carol of the Bells"`, "Carol of the Bells"},
		{"Arthur Christmas", "Arthur Christmas"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTitle(tt.in), tt.in)
	}
}

func TestExtractTitles(t *testing.T) {
	titles, err := ExtractTitles([]byte(christmasPage))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Happiest Season",
		"The Holiday",
		"Mickey's Once Upon a Christmas",
		"A Flintstone Christmas",
	}, titles)

	titles, err = ExtractTitles([]byte("not html at all"))
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func newSource(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		if r.URL.Path != "/christmas" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(christmasPage))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testPages() map[holiday.Holiday]string {
	return map[holiday.Holiday]string{
		holiday.Christmas: "/christmas",
		holiday.Halloween: "/halloween",
	}
}

func TestFetchTitlesCachesWithTTL(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	srv, hits := newSource(t, http.StatusOK)

	clock := &testutil.FixedClock{Now: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewSQLCache(tdb.DB.X())
	cache.now = clock.Time

	f := NewFetcher(Config{BaseURL: srv.URL, Pages: testPages()}, cache, nil, tdb.Logger)
	ctx := context.Background()
	only := holiday.NewSet(holiday.Christmas)

	got := f.FetchTitles(ctx, false, only)
	require.Contains(t, got, holiday.Christmas)
	assert.Contains(t, got[holiday.Christmas], "Happiest Season")
	assert.Equal(t, int32(1), hits.Load())

	cached, ok, err := cache.Get(ctx, "titles::Christmas")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got[holiday.Christmas], cached)

	again := f.FetchTitles(ctx, false, only)
	assert.Equal(t, got, again)
	assert.Equal(t, int32(1), hits.Load(), "second call should be served from cache")

	clock.Advance(DefaultTTL + time.Second)
	f.FetchTitles(ctx, false, only)
	assert.Equal(t, int32(2), hits.Load(), "expired entry should be refetched")

	require.NoError(t, f.ClearCache(ctx))
	_, ok, err = cache.Get(ctx, "titles::Christmas")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchTitlesSkipAndFilter(t *testing.T) {
	srv, hits := newSource(t, http.StatusOK)
	f := NewFetcher(Config{BaseURL: srv.URL, Pages: testPages()}, nil, nil, testutil.NopLogger())

	assert.Empty(t, f.FetchTitles(context.Background(), true, nil))
	assert.Equal(t, int32(0), hits.Load())

	got := f.FetchTitles(context.Background(), false, holiday.NewSet(holiday.Thanksgiving))
	assert.Empty(t, got)
	assert.Equal(t, int32(0), hits.Load())

	// Halloween 404s and is dropped; Christmas still comes through.
	got = f.FetchTitles(context.Background(), false, nil)
	assert.Len(t, got, 1)
	assert.Contains(t, got, holiday.Christmas)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchTitlesDegradesOnFailure(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv, _ := newSource(t, http.StatusServiceUnavailable)
		f := NewFetcher(Config{BaseURL: srv.URL, Pages: testPages()}, nil, nil, testutil.NopLogger())
		assert.Empty(t, f.FetchTitles(context.Background(), false, nil))
	})

	t.Run("network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		f := NewFetcher(Config{BaseURL: url, Pages: testPages(), Timeout: time.Second}, nil, nil, testutil.NopLogger())
		titles := f.FetchTitles(context.Background(), false, nil)
		assert.NotNil(t, titles)
		assert.Empty(t, titles)

		m := matcher.New(patterns.Default(), titles)
		ep := testutil.Episode("e1", "The Simpsons", "Treehouse of Horror IX", 10, 4)
		assert.True(t, m.IsMatch(ep, holiday.Halloween))
	})
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := NewRedisCache(client)
	ctx := context.Background()
	require.NoError(t, cache.Ping(ctx))

	_, ok, err := cache.Get(ctx, "titles::Christmas")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "titles::Christmas", []string{"Klaus", "Happiest Season"}, time.Hour))
	require.NoError(t, cache.Set(ctx, "titles::Halloween", []string{"Hocus Pocus"}, time.Hour))
	require.NoError(t, client.Set(ctx, "unrelated", "x", 0).Err())

	titles, ok, err := cache.Get(ctx, "titles::Christmas")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Klaus", "Happiest Season"}, titles)

	mr.FastForward(2 * time.Hour)
	_, ok, err = cache.Get(ctx, "titles::Christmas")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "titles::Christmas", []string{"Klaus"}, time.Hour))
	require.NoError(t, cache.Clear(ctx))
	assert.False(t, mr.Exists("titles::Christmas"))
	assert.True(t, mr.Exists("unrelated"))
}
