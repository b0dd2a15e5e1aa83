package classcache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/testutil"
)

func newStore(t *testing.T) (*Store, *sqlx.DB) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	return New(tdb.DB.X(), tdb.Logger), tdb.DB.X()
}

func count(t *testing.T, db *sqlx.DB, table, id string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, db.Rebind("SELECT COUNT(*) FROM "+table+" WHERE external_id = ?"), id))
	return n
}

func TestSaveAndGetCached(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	ep := testutil.Episode("ep-1", "The Simpsons", "Treehouse of Horror IX", 10, 4)

	_, err := store.GetCached(ctx, "ep-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Save(ctx, ep, Record{
		Model: "gpt-4o-mini",
		Classifications: []holiday.Classification{
			{Holiday: holiday.Christmas, Confidence: 72, Reason: "snow"},
			{Holiday: holiday.Halloween, Confidence: 98, Reason: "annual horror special"},
			{Holiday: holiday.Thanksgiving, Confidence: 55},
		},
		RequestPayload:  `{"title":"Treehouse of Horror IX"}`,
		ResponsePayload: `{"holidays":[]}`,
	}))

	rec, err := store.GetCached(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", rec.Model)
	assert.Equal(t, `{"title":"Treehouse of Horror IX"}`, rec.RequestPayload)
	assert.Equal(t, []holiday.Classification{
		{Holiday: holiday.Halloween, Confidence: 98, Reason: "annual horror special"},
		{Holiday: holiday.Christmas, Confidence: 72, Reason: "snow"},
	}, rec.Classifications)
}

func TestSaveIsFirstWriteWins(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	mv := testutil.Movie("mv-1", "Die Hard", 1988)

	first := Record{Model: "a", Classifications: []holiday.Classification{{Holiday: holiday.Christmas, Confidence: 90}}}
	second := Record{Model: "b", Classifications: []holiday.Classification{
		{Holiday: holiday.Christmas, Confidence: 71},
		{Holiday: holiday.NewYears, Confidence: 80},
	}}

	require.NoError(t, store.Save(ctx, mv, first))
	require.NoError(t, store.Save(ctx, mv, second))

	rec, err := store.GetCached(ctx, "mv-1")
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Model)
	// The classification row for Christmas keeps its first confidence.
	assert.Contains(t, rec.Classifications, holiday.Classification{Holiday: holiday.Christmas, Confidence: 90})
	assert.Equal(t, 1, count(t, db, "media_items", "mv-1"))
	assert.Equal(t, 1, count(t, db, "classification_responses", "mv-1"))
}

func TestSaveEmptyResult(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testutil.Movie("mv-2", "Filtered", 2001), Record{Model: "m"}))

	rec, err := store.GetCached(ctx, "mv-2")
	require.NoError(t, err)
	assert.Empty(t, rec.Classifications)
	assert.Equal(t, 0, count(t, db, "holiday_classifications", "mv-2"))
}

func TestConcurrentSavesSameItem(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	mv := testutil.Movie("mv-3", "Krampus", 2015)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Save(ctx, mv, Record{
				Model:           "m",
				Classifications: []holiday.Classification{{Holiday: holiday.Christmas, Confidence: 95}},
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, count(t, db, "holiday_classifications", "mv-3"))
	assert.Equal(t, 1, count(t, db, "classification_responses", "mv-3"))
}

func TestGetBulkCachedAndPartition(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	a := testutil.Movie("a", "Die Hard", 1988)
	b := testutil.Episode("b", "Show", "Pilot", 1, 1)
	c := testutil.Movie("c", "Heat", 1995)
	d := testutil.Movie("d", "Hocus Pocus", 1993)

	require.NoError(t, store.Save(ctx, a, Record{Model: "m", Classifications: []holiday.Classification{{Holiday: holiday.Christmas, Confidence: 88}}}))
	require.NoError(t, store.Save(ctx, c, Record{Model: "m"}))

	got, err := store.GetBulkCached(ctx, []string{"a", "b", "c", "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []holiday.Classification{{Holiday: holiday.Christmas, Confidence: 88}}, got["a"].Classifications)
	assert.Empty(t, got["c"].Classifications)

	empty, err := store.GetBulkCached(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	p, err := store.Partition(ctx, []media.Item{d, a, b, c, a})
	require.NoError(t, err)
	require.Len(t, p.Cached, 2)
	assert.Equal(t, a, p.Cached[0].Item)
	assert.Equal(t, c, p.Cached[1].Item)
	assert.Equal(t, []media.Item{d, b}, p.NeedsClassification)
}

func TestGetBulkCachedIssuesOneQuery(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	store := New(sqlx.NewDb(conn, "sqlite3"), testutil.NopLogger())

	rows := sqlmock.NewRows([]string{"external_id", "model", "holiday", "confidence", "reason"}).
		AddRow("a", "m", "Christmas", 90, "tree").
		AddRow("a", "m", "New Year's", 75, "").
		AddRow("b", "m", nil, nil, nil)
	mock.ExpectQuery(`FROM classification_responses r\s+LEFT JOIN holiday_classifications c`).
		WithArgs("a", "b", "c").
		WillReturnRows(rows)

	got, err := store.GetBulkCached(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got["a"].Classifications, 2)
	assert.Empty(t, got["b"].Classifications)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPartitionPropagatesReadError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	store := New(sqlx.NewDb(conn, "sqlite3"), testutil.NopLogger())
	mock.ExpectQuery(`FROM classification_responses`).WillReturnError(errors.New("disk I/O error"))

	_, err = store.Partition(context.Background(), []media.Item{testutil.Movie("a", "A", 2000)})
	assert.Error(t, err)
}
