package media

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownKind is returned when decoding an envelope with an unsupported kind.
var ErrUnknownKind = errors.New("unknown media kind")

// Envelope is the wire form of an Item. Kind selects the variant; the episode
// fields are ignored for movies.
type Envelope struct {
	Kind          Kind       `json:"kind"`
	ExternalID    string     `json:"externalId"`
	DisplayKey    string     `json:"displayKey,omitempty"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary,omitempty"`
	Year          int        `json:"year,omitempty"`
	AddedAt       *time.Time `json:"addedAt,omitempty"`
	SeriesTitle   string     `json:"seriesTitle,omitempty"`
	SeasonNumber  int        `json:"seasonNumber,omitempty"`
	EpisodeNumber int        `json:"episodeNumber,omitempty"`
}

// Item converts the envelope into its variant.
func (e Envelope) Item() (Item, error) {
	if e.ExternalID == "" {
		return nil, errors.New("media item missing externalId")
	}
	base := Base{
		ExternalID: e.ExternalID,
		DisplayKey: e.DisplayKey,
		Title:      e.Title,
		Summary:    e.Summary,
		Year:       e.Year,
		AddedAt:    e.AddedAt,
	}

	switch e.Kind {
	case KindEpisode:
		if e.SeasonNumber < 0 || e.EpisodeNumber < 0 {
			return nil, fmt.Errorf("episode %s: negative season or episode number", e.ExternalID)
		}
		return &Episode{
			Base:          base,
			SeriesTitle:   e.SeriesTitle,
			SeasonNumber:  e.SeasonNumber,
			EpisodeNumber: e.EpisodeNumber,
		}, nil
	case KindMovie:
		return &Movie{Base: base}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

// ToEnvelope converts an item into its wire form.
func ToEnvelope(item Item) Envelope {
	b := item.Meta()
	env := Envelope{
		Kind:       item.Kind(),
		ExternalID: b.ExternalID,
		DisplayKey: b.DisplayKey,
		Title:      b.Title,
		Summary:    b.Summary,
		Year:       b.Year,
		AddedAt:    b.AddedAt,
	}
	if ep, ok := item.(*Episode); ok {
		env.SeriesTitle = ep.SeriesTitle
		env.SeasonNumber = ep.SeasonNumber
		env.EpisodeNumber = ep.EpisodeNumber
	}
	return env
}

// DecodeAll converts envelopes into items, failing on the first invalid one.
func DecodeAll(envs []Envelope) ([]Item, error) {
	items := make([]Item, 0, len(envs))
	for i, env := range envs {
		item, err := env.Item()
		if err != nil {
			return nil, fmt.Errorf("media[%d]: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// EncodeAll converts items into envelopes.
func EncodeAll(items []Item) []Envelope {
	envs := make([]Envelope, 0, len(items))
	for _, item := range items {
		envs = append(envs, ToEnvelope(item))
	}
	return envs
}
