package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"skyclaim.ai/internal/persistence"
	"skyclaim.ai/internal/territory"
)

// Latest returns the newest committed record of each kind for a territory.
func (s *SQLiteIndex) Latest(ctx context.Context, id uuid.UUID) (map[territory.DeltaKind]persistence.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, seq, at, payload FROM latest WHERE territory_id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[territory.DeltaKind]persistence.Record{}
	for rows.Next() {
		rec, err := scanRecord(id, rows)
		if err != nil {
			return nil, err
		}
		out[rec.Kind] = rec
	}
	return out, rows.Err()
}

// History returns up to limit records with seq > after, oldest first.
func (s *SQLiteIndex) History(ctx context.Context, id uuid.UUID, after uint64, limit int) ([]persistence.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, seq, at, payload FROM deltas WHERE territory_id = ? AND seq > ? ORDER BY seq LIMIT ?`,
		id.String(), int64(after), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []persistence.Record
	for rows.Next() {
		rec, err := scanRecord(id, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Territories lists every territory with at least one delta that has not
// been disbanded.
func (s *SQLiteIndex) Territories(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT territory_id FROM latest
		WHERE territory_id NOT IN (SELECT territory_id FROM latest WHERE kind = ?)
		ORDER BY territory_id`, string(territory.DeltaDisband))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanRecord(id uuid.UUID, rows *sql.Rows) (persistence.Record, error) {
	var (
		kind    string
		seq     int64
		at      string
		payload sql.NullString
	)
	if err := rows.Scan(&kind, &seq, &at, &payload); err != nil {
		return persistence.Record{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return persistence.Record{}, err
	}
	rec := persistence.Record{
		TerritoryID: id,
		Seq:         uint64(seq),
		Kind:        territory.DeltaKind(kind),
		At:          ts,
	}
	if payload.Valid {
		rec.Payload = json.RawMessage(payload.String)
	}
	return rec, nil
}
