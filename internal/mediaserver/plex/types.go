package plex

import "time"

// Plex metadata type codes used by section listing and collections.
const (
	typeMovie   = 1
	typeEpisode = 4
)

// Config configures the client for one Plex Media Server.
type Config struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
}

// LibrarySection represents a Plex library section
type LibrarySection struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"` // "movie", "show", "artist", etc.
}

// Collection is a Plex collection in a library section.
type Collection struct {
	RatingKey  string `json:"ratingKey"`
	Title      string `json:"title"`
	Subtype    string `json:"subtype,omitempty"`
	ChildCount int    `json:"childCount"`
}

type metadata struct {
	RatingKey        string `json:"ratingKey"`
	Key              string `json:"key"`
	GUID             string `json:"guid"`
	Type             string `json:"type"`
	Title            string `json:"title"`
	Summary          string `json:"summary"`
	Year             int    `json:"year"`
	AddedAt          int64  `json:"addedAt"`
	GrandparentTitle string `json:"grandparentTitle"`
	ParentIndex      int    `json:"parentIndex"`
	Index            int    `json:"index"`
	Subtype          string `json:"subtype"`
	ChildCount       int    `json:"childCount"`
}

type metadataContainer struct {
	MediaContainer struct {
		Size      int        `json:"size"`
		TotalSize int        `json:"totalSize"`
		Metadata  []metadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

type identityContainer struct {
	MediaContainer struct {
		MachineIdentifier string `json:"machineIdentifier"`
		Version           string `json:"version"`
	} `json:"MediaContainer"`
}
