package classcache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/media"
)

// Save writes the item, its actionable classifications and the raw exchange
// in one transaction. Rows that already exist are left untouched, so saving
// the same item twice keeps the first result. Classifications below the
// actionable floor are never stored.
func (s *Store) Save(ctx context.Context, item media.Item, rec Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := media.ExternalID(item)
	if err := insertMediaItem(ctx, tx, item); err != nil {
		return err
	}

	for _, c := range holiday.FilterActionable(rec.Classifications, nil) {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO holiday_classifications (external_id, holiday, confidence, reason)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (external_id, holiday) DO NOTHING`),
			id, string(c.Holiday), c.Confidence, c.Reason); err != nil {
			return fmt.Errorf("failed to insert classification %s/%s: %w", id, c.Holiday, err)
		}
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO classification_responses (external_id, model, request_payload, response_payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (external_id) DO NOTHING`),
		id, rec.Model, rec.RequestPayload, rec.ResponsePayload); err != nil {
		return fmt.Errorf("failed to insert classification response %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit classification %s: %w", id, err)
	}
	return nil
}

func insertMediaItem(ctx context.Context, tx *sqlx.Tx, item media.Item) error {
	b := item.Meta()
	var (
		seriesTitle   sql.NullString
		seasonNumber  sql.NullInt64
		episodeNumber sql.NullInt64
		year          sql.NullInt64
	)
	if ep, ok := item.(*media.Episode); ok {
		seriesTitle = sql.NullString{String: ep.SeriesTitle, Valid: true}
		seasonNumber = sql.NullInt64{Int64: int64(ep.SeasonNumber), Valid: true}
		episodeNumber = sql.NullInt64{Int64: int64(ep.EpisodeNumber), Valid: true}
	}
	if b.Year > 0 {
		year = sql.NullInt64{Int64: int64(b.Year), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO media_items (external_id, kind, display_key, title, series_title, season_number, episode_number, year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO NOTHING`),
		b.ExternalID, string(item.Kind()), b.DisplayKey, b.Title, seriesTitle, seasonNumber, episodeNumber, year); err != nil {
		return fmt.Errorf("failed to insert media item %s: %w", b.ExternalID, err)
	}
	return nil
}
