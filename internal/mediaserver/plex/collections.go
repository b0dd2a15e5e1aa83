package plex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/holidarr/holidarr/internal/media"
)

// GetCollections returns the collections of a library section.
func (c *Client) GetCollections(ctx context.Context, libraryRef string) ([]Collection, error) {
	rows, err := c.listAll(ctx, "/library/sections/"+url.PathEscape(libraryRef)+"/collections", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	out := make([]Collection, 0, len(rows))
	for _, row := range rows {
		out = append(out, Collection{RatingKey: row.RatingKey, Title: row.Title, Subtype: row.Subtype, ChildCount: row.ChildCount})
	}
	return out, nil
}

func (c *Client) collectionChildren(ctx context.Context, ratingKey string) (map[string]struct{}, error) {
	rows, err := c.listAll(ctx, "/library/collections/"+url.PathEscape(ratingKey)+"/children", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection items: %w", err)
	}
	out := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		out[row.RatingKey] = struct{}{}
	}
	return out, nil
}

func (c *Client) itemsURI(ctx context.Context, keys []string) (string, error) {
	machineID, err := c.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(libraryURIStart, machineID, strings.Join(keys, ",")), nil
}

// EnsureCollection implements mediaserver.Collections.
func (c *Client) EnsureCollection(ctx context.Context, libraryRef, name string, kind media.Kind, items []media.Item) (int, error) {
	var keys []string
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		rk := ratingKey(item)
		if rk == "" {
			c.logger.Warn().Str("externalId", media.ExternalID(item)).Msg("Item has no Plex rating key, skipping")
			continue
		}
		if _, dup := seen[rk]; dup {
			continue
		}
		seen[rk] = struct{}{}
		keys = append(keys, rk)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	collections, err := c.GetCollections(ctx, libraryRef)
	if err != nil {
		return 0, err
	}

	var existing *Collection
	for i := range collections {
		if collections[i].Title == name {
			existing = &collections[i]
			break
		}
	}

	if existing == nil {
		if err := c.createCollection(ctx, libraryRef, name, kind, keys); err != nil {
			return 0, err
		}
		c.logger.Info().Str("section", libraryRef).Str("collection", name).Int("items", len(keys)).Msg("Created collection")
		return len(keys), nil
	}

	present, err := c.collectionChildren(ctx, existing.RatingKey)
	if err != nil {
		return 0, err
	}
	var missing []string
	for _, k := range keys {
		if _, ok := present[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	uri, err := c.itemsURI(ctx, missing)
	if err != nil {
		return 0, err
	}
	if err := c.do(ctx, http.MethodPut, "/library/collections/"+url.PathEscape(existing.RatingKey)+"/items", url.Values{"uri": {uri}}, nil); err != nil {
		return 0, fmt.Errorf("failed to add collection items: %w", err)
	}
	c.logger.Info().Str("section", libraryRef).Str("collection", name).Int("added", len(missing)).Msg("Extended collection")
	return len(missing), nil
}

func (c *Client) createCollection(ctx context.Context, libraryRef, name string, kind media.Kind, keys []string) error {
	plexType := typeMovie
	switch kind {
	case media.KindEpisode:
		plexType = typeEpisode
	case media.KindMovie:
	default:
		return errors.New("unsupported collection kind " + string(kind))
	}

	uri, err := c.itemsURI(ctx, keys)
	if err != nil {
		return err
	}
	q := url.Values{
		"type":      {strconv.Itoa(plexType)},
		"title":     {name},
		"smart":     {"0"},
		"sectionId": {libraryRef},
		"uri":       {uri},
	}
	if err := c.do(ctx, http.MethodPost, "/library/collections", q, nil); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}
