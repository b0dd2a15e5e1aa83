package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/patterns"
)

func movie(id, title string, year int) *media.Movie {
	return &media.Movie{Base: media.Base{ExternalID: id, Title: title, Year: year}}
}

func episode(id, title, summary string) *media.Episode {
	return &media.Episode{
		Base:        media.Base{ExternalID: id, Title: title, Summary: summary},
		SeriesTitle: "Some Show",
	}
}

func TestScoreStrongTitleMatch(t *testing.T) {
	m := New(patterns.Default(), nil)
	ep := episode("e1", "Treehouse of Horror IX", "")

	assert.Equal(t, 25, m.Score(ep, holiday.Halloween))
	assert.True(t, m.IsMatch(ep, holiday.Halloween))

	assert.Equal(t, 0, m.Score(ep, holiday.Christmas))
	assert.False(t, m.IsMatch(ep, holiday.Christmas))
}

func TestExcludeVeto(t *testing.T) {
	m := New(patterns.Default(), nil)

	mv := movie("m1", "Christmas Island Adventure", 2010)
	assert.Equal(t, 0, m.Score(mv, holiday.Christmas))
	assert.False(t, m.IsMatch(mv, holiday.Christmas))

	ep := episode("e1", "Road Trip", "The gang drives a sleigh-shaped car to Santa Fe.")
	assert.Equal(t, 0, m.Score(ep, holiday.Christmas))
}

func TestCrossHolidaySuppression(t *testing.T) {
	m := New(patterns.Default(), nil)
	ep := episode("e1", "Halloween Special", "Santa and his elves make a christmas snowman and sing carols.")

	assert.True(t, m.IsMatch(ep, holiday.Halloween))
	for _, h := range holiday.Curated {
		if h == holiday.Halloween {
			continue
		}
		assert.Equal(t, 0, m.Score(ep, h), h)
		assert.False(t, m.IsMatch(ep, h), h)
	}
}

func TestSuppressionIgnoresSummary(t *testing.T) {
	m := New(patterns.Default(), nil)
	ep := episode("e1", "Family Dinner", "The family argues over the turkey on Thanksgiving while the kids plan Halloween.")

	// thanksgiving include (3) + turkey include (3) + thanksgiving strong (5)
	assert.Equal(t, 11, m.Score(ep, holiday.Thanksgiving))
	assert.True(t, m.IsMatch(ep, holiday.Thanksgiving))
}

func TestSummaryOnlyBelowThreshold(t *testing.T) {
	m := New(patterns.Default(), nil)
	mv := movie("m1", "Family Reunion", 2001)
	mv.Summary = "Grandma knits stockings for everyone."

	assert.Equal(t, 3, m.Score(mv, holiday.Christmas))
	assert.False(t, m.IsMatch(mv, holiday.Christmas))

	low := New(patterns.Default(), nil, WithThreshold(3))
	assert.Equal(t, 3, low.Threshold())
	assert.True(t, low.IsMatch(mv, holiday.Christmas))
}

func TestRequiredTitleOverride(t *testing.T) {
	m := New(patterns.Default(), nil)

	tests := []struct {
		name  string
		item  media.Item
		h     holiday.Holiday
		match bool
	}{
		{"exact", movie("1", "Die Hard", 1988), holiday.Christmas, true},
		{"year plus one", movie("2", "Die Hard", 1989), holiday.Christmas, true},
		{"year minus one", movie("3", "Die Hard", 1987), holiday.Christmas, true},
		{"year too far", movie("4", "Die Hard", 1991), holiday.Christmas, false},
		{"article and case", movie("5", "polar express", 2004), holiday.Christmas, true},
		{"punctuation", movie("6", "Trick r Treat", 2007), holiday.Halloween, true},
		{"accents", movie("7", "Klâus", 2019), holiday.Christmas, true},
		{"wrong holiday", movie("8", "Die Hard", 1988), holiday.Halloween, false},
		{"episodes never", episode("9", "Die Hard", ""), holiday.Christmas, false},
		{"missing year", movie("10", "Die Hard", 0), holiday.Christmas, false},
		{"missing year no keywords", movie("11", "Casper", 0), holiday.Halloween, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, m.IsMatch(tt.item, tt.h))
		})
	}

	assert.Equal(t, 0, m.Score(movie("1", "Die Hard", 1988), holiday.Christmas))
}

func TestSupplementaryTitles(t *testing.T) {
	supp := map[holiday.Holiday][]string{
		holiday.Christmas: {"Happiest Season", "C.H.U.D.", "  "},
		holiday.Easter:    {"Hop"},
	}
	m := New(patterns.Default(), supp)
	plain := New(patterns.Default(), nil)

	hs := movie("m1", "Happiest Season", 2020)
	assert.Equal(t, 10, m.Score(hs, holiday.Christmas))
	assert.True(t, m.IsMatch(hs, holiday.Christmas))
	assert.False(t, plain.IsMatch(hs, holiday.Christmas))

	spaced := movie("m2", "Movie Night", 2021)
	spaced.Summary = "They rewatch HAPPIEST\n  season again."
	assert.Equal(t, 3, m.Score(spaced, holiday.Christmas))

	assert.Equal(t, 10, m.Score(movie("m3", "C.H.U.D. Returns", 1989), holiday.Christmas))
	assert.Equal(t, 0, m.Score(movie("m4", "CxHxUxDx", 1989), holiday.Christmas))

	// Easter is not in the curated library, so its titles are ignored.
	assert.Equal(t, 0, m.Score(movie("m5", "Hop", 2011), holiday.Easter))
}

func TestFindMatchesWithThreshold(t *testing.T) {
	m := New(patterns.Default(), nil)
	items := []media.Item{
		movie("m1", "Die Hard", 1988),
		episode("e1", "Treehouse of Horror IX", ""),
		episode("e2", "A Very Merry Christmas", ""),
		movie("m2", "Hocus Pocus", 1993),
		movie("m3", "Heat", 1995),
		movie("m4", "The Christmas Chronicles", 2018),
		nil,
	}

	got := m.FindMatchesWithThreshold(items, DefaultThreshold)
	require.Len(t, got, 2)

	assert.Equal(t, holiday.Christmas, got[0].Holiday)
	assert.Equal(t, []string{"e2"}, ids(got[0].Episodes))
	assert.Equal(t, []string{"m1", "m4"}, ids(got[0].Movies))

	assert.Equal(t, holiday.Halloween, got[1].Holiday)
	assert.Equal(t, []string{"e1"}, ids(got[1].Episodes))
	assert.Equal(t, []string{"m2"}, ids(got[1].Movies))

	only := m.FindMatchesWithThreshold(items, DefaultThreshold, holiday.Halloween, holiday.Diwali)
	require.Len(t, only, 1)
	assert.Equal(t, holiday.Halloween, only[0].Holiday)
	assert.Len(t, only[0].Items(), 2)

	assert.Empty(t, m.FindMatches([]media.Item{movie("m3", "Heat", 1995)}))
}

func TestTitlePattern(t *testing.T) {
	re, err := titlePattern("Mr. & Mrs. Claus (2019)")
	require.NoError(t, err)
	assert.True(t, re.MatchString("watching mr.   &  MRS. claus (2019) tonight"))
	assert.False(t, re.MatchString("Mr & Mrs Claus 2019"))

	_, err = titlePattern("   ")
	assert.Error(t, err)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "polar express", normalizeTitle("The Polar Express"))
	assert.Equal(t, "it s a wonderful life", normalizeTitle("It's a Wonderful Life"))
	assert.Equal(t, "noel", normalizeTitle("  Noël!  "))
	assert.Equal(t, "", normalizeTitle(""))
}

func ids[T media.Item](items []T) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, media.ExternalID(item))
	}
	return out
}
