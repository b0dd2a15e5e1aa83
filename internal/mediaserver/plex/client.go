// Package plex adapts a Plex Media Server to the mediaserver interfaces:
// section enumeration and holiday collection maintenance. Requests are not
// retried; the caller decides when to try again.
package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/media"
)

const (
	product         = "Holidarr"
	defaultTimeout  = 30 * time.Second
	pageSize        = 500
	libraryURIStart = "server://%s/com.plexapp.plugins.library/library/metadata/%s"
)

// ErrNotConfigured is returned when the server URL or token is missing.
var ErrNotConfigured = errors.New("plex server url and token are required")

// Client handles communication with one Plex Media Server.
type Client struct {
	httpClient *http.Client
	serverURL  string
	token      string
	clientID   string
	version    string
	logger     zerolog.Logger

	mu        sync.Mutex
	machineID string
}

// NewClient creates a Plex client.
func NewClient(cfg Config, version string, logger zerolog.Logger) (*Client, error) {
	if cfg.ServerURL == "" || cfg.Token == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		serverURL:  strings.TrimRight(cfg.ServerURL, "/"),
		token:      cfg.Token,
		clientID:   uuid.New().String(),
		version:    version,
		logger:     logger.With().Str("component", "plex-client").Logger(),
	}, nil
}

func (c *Client) getHeaders() map[string]string {
	return map[string]string{
		"X-Plex-Client-Identifier": c.clientID,
		"X-Plex-Product":           product,
		"X-Plex-Version":           c.version,
		"X-Plex-Platform":          runtime.GOOS,
		"X-Plex-Platform-Version":  runtime.GOARCH,
		"X-Plex-Device":            runtime.GOOS,
		"X-Plex-Device-Name":       product,
		"X-Plex-Token":             c.token,
		"Accept":                   "application/json",
	}
}

// do sends a request and decodes a JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, out any) error {
	u := c.serverURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.getHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d, body: %s", method, endpoint, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return nil
}

// TestConnection checks that the server answers with the configured token.
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.machineIdentifier(ctx)
	return err
}

func (c *Client) machineIdentifier(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.machineID != "" {
		return c.machineID, nil
	}

	var identity identityContainer
	if err := c.do(ctx, http.MethodGet, "/identity", nil, &identity); err != nil {
		return "", fmt.Errorf("failed to connect to server: %w", err)
	}
	if identity.MediaContainer.MachineIdentifier == "" {
		return "", errors.New("server identity has no machine identifier")
	}
	c.machineID = identity.MediaContainer.MachineIdentifier
	return c.machineID, nil
}

// GetLibrarySections returns the library sections of the server.
func (c *Client) GetLibrarySections(ctx context.Context) ([]LibrarySection, error) {
	var container struct {
		MediaContainer struct {
			Directory []LibrarySection `json:"Directory"`
		} `json:"MediaContainer"`
	}
	if err := c.do(ctx, http.MethodGet, "/library/sections", nil, &container); err != nil {
		return nil, fmt.Errorf("failed to get library sections: %w", err)
	}
	return container.MediaContainer.Directory, nil
}

// listAll pages through a metadata endpoint.
func (c *Client) listAll(ctx context.Context, endpoint string, query url.Values) ([]metadata, error) {
	var all []metadata
	for start := 0; ; start += pageSize {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("X-Plex-Container-Start", strconv.Itoa(start))
		q.Set("X-Plex-Container-Size", strconv.Itoa(pageSize))

		var page metadataContainer
		if err := c.do(ctx, http.MethodGet, endpoint, q, &page); err != nil {
			return nil, err
		}
		all = append(all, page.MediaContainer.Metadata...)

		got := len(page.MediaContainer.Metadata)
		total := page.MediaContainer.TotalSize
		if got < pageSize || (total > 0 && len(all) >= total) {
			return all, nil
		}
	}
}

// ListEpisodes implements mediaserver.Library.
func (c *Client) ListEpisodes(ctx context.Context, libraryRef string) ([]*media.Episode, error) {
	rows, err := c.listAll(ctx, "/library/sections/"+url.PathEscape(libraryRef)+"/all", url.Values{"type": {strconv.Itoa(typeEpisode)}})
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	out := make([]*media.Episode, 0, len(rows))
	for _, row := range rows {
		out = append(out, &media.Episode{
			Base:          row.base(),
			SeriesTitle:   row.GrandparentTitle,
			SeasonNumber:  max(row.ParentIndex, 0),
			EpisodeNumber: max(row.Index, 0),
		})
	}
	c.logger.Debug().Str("section", libraryRef).Int("episodes", len(out)).Msg("Listed episodes")
	return out, nil
}

// ListMovies implements mediaserver.Library.
func (c *Client) ListMovies(ctx context.Context, libraryRef string) ([]*media.Movie, error) {
	rows, err := c.listAll(ctx, "/library/sections/"+url.PathEscape(libraryRef)+"/all", url.Values{"type": {strconv.Itoa(typeMovie)}})
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	out := make([]*media.Movie, 0, len(rows))
	for _, row := range rows {
		out = append(out, &media.Movie{Base: row.base()})
	}
	c.logger.Debug().Str("section", libraryRef).Int("movies", len(out)).Msg("Listed movies")
	return out, nil
}

// base maps Plex metadata onto the common item fields. The agent guid is
// the stable id; the rating key is only stable within one server.
func (m metadata) base() media.Base {
	id := m.GUID
	if id == "" {
		id = "plex:" + m.RatingKey
	}
	key := m.Key
	if key == "" || strings.HasSuffix(key, "/children") {
		key = "/library/metadata/" + m.RatingKey
	}
	b := media.Base{
		ExternalID: id,
		DisplayKey: key,
		Title:      m.Title,
		Summary:    m.Summary,
		Year:       m.Year,
	}
	if m.AddedAt > 0 {
		t := time.Unix(m.AddedAt, 0).UTC()
		b.AddedAt = &t
	}
	return b
}

// ratingKey extracts the server-local key from an item's display key.
func ratingKey(item media.Item) string {
	key := item.Meta().DisplayKey
	if !strings.HasPrefix(key, "/library/metadata/") {
		return ""
	}
	return path.Base(key)
}
