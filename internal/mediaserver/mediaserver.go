// Package mediaserver defines the media-library collaborator: enumerating
// episodes and movies and maintaining named collections.
package mediaserver

import (
	"context"
	"fmt"

	"github.com/holidarr/holidarr/internal/media"
)

// Library enumerates the items of a library section.
type Library interface {
	ListEpisodes(ctx context.Context, libraryRef string) ([]*media.Episode, error)
	ListMovies(ctx context.Context, libraryRef string) ([]*media.Movie, error)
}

// Collections maintains named collections in a library section.
type Collections interface {
	// EnsureCollection creates the collection when missing and adds any of
	// items not already in it. It returns the number of items added.
	EnsureCollection(ctx context.Context, libraryRef, name string, kind media.Kind, items []media.Item) (int, error)
}

// Server is a media server that can be listed and curated.
type Server interface {
	Library
	Collections
}

// Sections names the library sections to enumerate.
type Sections struct {
	Movies []string
	Shows  []string
}

// CollectItems lists every configured section and returns the items with the
// section each came from, keyed by external id.
func CollectItems(ctx context.Context, lib Library, sections Sections) ([]media.Item, map[string]string, error) {
	var items []media.Item
	origin := make(map[string]string)

	for _, ref := range sections.Shows {
		episodes, err := lib.ListEpisodes(ctx, ref)
		if err != nil {
			return nil, nil, fmt.Errorf("list episodes in section %s: %w", ref, err)
		}
		for _, ep := range episodes {
			if _, dup := origin[ep.ExternalID]; dup {
				continue
			}
			origin[ep.ExternalID] = ref
			items = append(items, ep)
		}
	}
	for _, ref := range sections.Movies {
		movies, err := lib.ListMovies(ctx, ref)
		if err != nil {
			return nil, nil, fmt.Errorf("list movies in section %s: %w", ref, err)
		}
		for _, mv := range movies {
			if _, dup := origin[mv.ExternalID]; dup {
				continue
			}
			origin[mv.ExternalID] = ref
			items = append(items, mv)
		}
	}
	return items, origin, nil
}
