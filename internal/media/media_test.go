package media

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeDecode(t *testing.T) {
	raw := `[
		{"kind":"episode","externalId":"ep-1","title":"Treehouse of Horror IX","seriesTitle":"The Simpsons","seasonNumber":10,"episodeNumber":4},
		{"kind":"movie","externalId":"mv-1","title":"Die Hard","year":1988}
	]`

	var envs []Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &envs))

	items, err := DecodeAll(envs)
	require.NoError(t, err)
	require.Len(t, items, 2)

	ep, ok := items[0].(*Episode)
	require.True(t, ok)
	assert.Equal(t, KindEpisode, ep.Kind())
	assert.Equal(t, "The Simpsons", ep.SeriesTitle)
	assert.Equal(t, 10, ep.SeasonNumber)

	mv, ok := items[1].(*Movie)
	require.True(t, ok)
	assert.Equal(t, 1988, mv.Year)
	assert.Equal(t, "mv-1", ExternalID(mv))
}

func TestEnvelopeRejectsUnknownKind(t *testing.T) {
	_, err := Envelope{Kind: "album", ExternalID: "x"}.Item()
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = Envelope{Kind: KindMovie}.Item()
	assert.Error(t, err)

	_, err = Envelope{Kind: KindEpisode, ExternalID: "e", SeasonNumber: -1}.Item()
	assert.Error(t, err)
}

func TestToEnvelopeKeepsEpisodeFields(t *testing.T) {
	ep := &Episode{
		Base:          Base{ExternalID: "e1", Title: "Pilot"},
		SeriesTitle:   "Show",
		SeasonNumber:  1,
		EpisodeNumber: 2,
	}
	env := ToEnvelope(ep)
	assert.Equal(t, KindEpisode, env.Kind)
	assert.Equal(t, "Show", env.SeriesTitle)

	back, err := env.Item()
	require.NoError(t, err)
	assert.Equal(t, ep, back)
}

func TestSplitAndDedupe(t *testing.T) {
	a := &Movie{Base: Base{ExternalID: "a"}}
	b := &Episode{Base: Base{ExternalID: "b"}}
	c := &Movie{Base: Base{ExternalID: "c"}}

	items := Dedupe([]Item{a, b, a, c})
	require.Len(t, items, 3)

	eps, movies := Split(items)
	assert.Equal(t, []*Episode{b}, eps)
	assert.Equal(t, []*Movie{a, c}, movies)
}
