// Package classcache persists classification results so each media item is
// sent to the classification backend at most once.
//
// Writes are insert-only. Every insert ignores conflicts on the natural key,
// so the first writer wins and duplicate or concurrent writes are no-ops.
package classcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/media"
)

// ErrNotFound is returned by GetCached on a miss.
var ErrNotFound = errors.New("classification not cached")

// maxBulkIDs bounds the IN list of one bulk query, below the bind-variable
// limits of SQLite and PostgreSQL.
const maxBulkIDs = 5000

// Record is the cached classification of one media item.
type Record struct {
	ExternalID      string                   `json:"externalId"`
	Model           string                   `json:"model"`
	Classifications []holiday.Classification `json:"classifications"`
	RequestPayload  string                   `json:"requestPayload,omitempty"`
	ResponsePayload string                   `json:"responsePayload,omitempty"`
}

// Store is the classification cache over a SQL database.
type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// New creates a store.
func New(db *sqlx.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "classcache").Logger(),
	}
}

type classificationRow struct {
	Holiday    string `db:"holiday"`
	Confidence int    `db:"confidence"`
	Reason     string `db:"reason"`
}

// GetCached returns the record for one item, or ErrNotFound.
func (s *Store) GetCached(ctx context.Context, externalID string) (*Record, error) {
	rec := &Record{ExternalID: externalID}
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		SELECT model, request_payload, response_payload
		FROM classification_responses
		WHERE external_id = ?`), externalID).Scan(&rec.Model, &rec.RequestPayload, &rec.ResponsePayload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached classification %s: %w", externalID, err)
	}

	var rows []classificationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT holiday, confidence, reason
		FROM holiday_classifications
		WHERE external_id = ?`), externalID); err != nil {
		return nil, fmt.Errorf("failed to get classifications %s: %w", externalID, err)
	}
	for _, row := range rows {
		s.appendClassification(rec, row.Holiday, row.Confidence, row.Reason)
	}
	holiday.SortClassifications(rec.Classifications)
	return rec, nil
}

type bulkRow struct {
	ExternalID string         `db:"external_id"`
	Model      string         `db:"model"`
	Holiday    sql.NullString `db:"holiday"`
	Confidence sql.NullInt64  `db:"confidence"`
	Reason     sql.NullString `db:"reason"`
}

// GetBulkCached looks up many items with one query per maxBulkIDs ids.
// Payloads are not loaded. Missing ids are absent from the result.
func (s *Store) GetBulkCached(ctx context.Context, externalIDs []string) (map[string]*Record, error) {
	out := make(map[string]*Record, len(externalIDs))
	ids := uniqueIDs(externalIDs)

	for start := 0; start < len(ids); start += maxBulkIDs {
		end := min(start+maxBulkIDs, len(ids))
		query, args, err := sqlx.In(`
			SELECT r.external_id, r.model, c.holiday, c.confidence, c.reason
			FROM classification_responses r
			LEFT JOIN holiday_classifications c ON c.external_id = r.external_id
			WHERE r.external_id IN (?)`, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to build bulk query: %w", err)
		}

		var rows []bulkRow
		if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("failed to get cached classifications: %w", err)
		}

		for _, row := range rows {
			rec, ok := out[row.ExternalID]
			if !ok {
				rec = &Record{ExternalID: row.ExternalID, Model: row.Model}
				out[row.ExternalID] = rec
			}
			if row.Holiday.Valid {
				s.appendClassification(rec, row.Holiday.String, int(row.Confidence.Int64), row.Reason.String)
			}
		}
	}

	for _, rec := range out {
		holiday.SortClassifications(rec.Classifications)
	}
	return out, nil
}

func (s *Store) appendClassification(rec *Record, name string, confidence int, reason string) {
	h, err := holiday.Parse(name)
	if err != nil {
		s.logger.Warn().Str("externalId", rec.ExternalID).Str("holiday", name).Msg("Ignoring cached classification with unknown holiday")
		return
	}
	rec.Classifications = append(rec.Classifications, holiday.Classification{
		Holiday:    h,
		Confidence: confidence,
		Reason:     reason,
	})
}

// CachedItem pairs an item with its cached record.
type CachedItem struct {
	Item   media.Item
	Record *Record
}

// Partition is the split of a batch into resolved and unresolved items.
type Partition struct {
	Cached              []CachedItem
	NeedsClassification []media.Item
}

// Partition splits items by cache presence using one bulk lookup. Input
// order is kept in both halves; duplicate ids keep their first occurrence.
func (s *Store) Partition(ctx context.Context, items []media.Item) (Partition, error) {
	items = media.Dedupe(items)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, media.ExternalID(item))
	}

	cached, err := s.GetBulkCached(ctx, ids)
	if err != nil {
		return Partition{}, err
	}

	var p Partition
	for _, item := range items {
		if rec, ok := cached[media.ExternalID(item)]; ok {
			p.Cached = append(p.Cached, CachedItem{Item: item, Record: rec})
			continue
		}
		p.NeedsClassification = append(p.NeedsClassification, item)
	}
	return p, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
