// Package media defines the library items that are classified: episodes and
// movies, discriminated by an explicit Kind.
package media

import (
	"time"
)

// Kind discriminates the Item variants.
type Kind string

const (
	KindEpisode Kind = "episode"
	KindMovie   Kind = "movie"
)

// Base holds the fields common to every item.
type Base struct {
	ExternalID string     `json:"externalId"`
	DisplayKey string     `json:"displayKey,omitempty"`
	Title      string     `json:"title"`
	Summary    string     `json:"summary,omitempty"`
	Year       int        `json:"year,omitempty"`
	AddedAt    *time.Time `json:"addedAt,omitempty"`
}

// Item is a media item: either *Episode or *Movie.
type Item interface {
	Kind() Kind
	Meta() *Base
	isItem()
}

// Episode is a single TV episode.
type Episode struct {
	Base
	SeriesTitle   string `json:"seriesTitle"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
}

// Movie is a feature or TV movie.
type Movie struct {
	Base
}

func (e *Episode) Kind() Kind  { return KindEpisode }
func (e *Episode) Meta() *Base { return &e.Base }
func (*Episode) isItem()       {}

func (m *Movie) Kind() Kind  { return KindMovie }
func (m *Movie) Meta() *Base { return &m.Base }
func (*Movie) isItem()       {}

// ExternalID is a shorthand for item.Meta().ExternalID.
func ExternalID(item Item) string {
	return item.Meta().ExternalID
}

// Split partitions items into episodes and movies, preserving input order.
func Split(items []Item) ([]*Episode, []*Movie) {
	var episodes []*Episode
	var movies []*Movie
	for _, item := range items {
		switch v := item.(type) {
		case *Episode:
			episodes = append(episodes, v)
		case *Movie:
			movies = append(movies, v)
		}
	}
	return episodes, movies
}

// Dedupe drops later items whose ExternalID was already seen.
func Dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		id := ExternalID(item)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item)
	}
	return out
}
