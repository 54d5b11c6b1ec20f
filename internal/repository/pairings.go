package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/abrezinsky/moherun/internal/models"
)

// GetPairing returns the supply-station pairing of weekID or ErrNotFound.
func (r *Repository) GetPairing(ctx context.Context, weekID string) (*models.Pairing, error) {
	var (
		p         models.Pairing
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT week_id, runner, partner, created_at FROM pairings WHERE week_id = ?`, weekID).
		Scan(&p.WeekID, &p.Runner, &p.Partner, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// SavePairing stores p unless weekID already has a pairing.
func (r *Repository) SavePairing(ctx context.Context, p models.Pairing) (bool, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO pairings (week_id, runner, partner, created_at) VALUES (?, ?, ?, ?)`,
		p.WeekID, p.Runner, p.Partner, formatTime(p.CreatedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

var pairingColumns = []string{"week_id", "runner", "partner", "created_at"}

// ListPairings returns every stored pairing by week.
func (r *Repository) ListPairings(ctx context.Context) ([]models.Pairing, error) {
	return r.queryPairings(ctx, sq.Select(pairingColumns...).From("pairings").OrderBy("week_id"))
}

// ListUnsyncedPairings returns pairings the external store has not confirmed.
func (r *Repository) ListUnsyncedPairings(ctx context.Context) ([]models.Pairing, error) {
	return r.queryPairings(ctx, sq.Select(pairingColumns...).From("pairings").Where(sq.Eq{"synced_at": nil}).OrderBy("week_id"))
}

func (r *Repository) queryPairings(ctx context.Context, b sq.SelectBuilder) ([]models.Pairing, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairings := []models.Pairing{}
	for rows.Next() {
		var (
			p         models.Pairing
			createdAt string
		)
		if err := rows.Scan(&p.WeekID, &p.Runner, &p.Partner, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		pairings = append(pairings, p)
	}
	return pairings, rows.Err()
}

// MarkPairingSynced records that the external store has weekID's pairing.
func (r *Repository) MarkPairingSynced(ctx context.Context, weekID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE pairings SET synced_at = ? WHERE week_id = ?`, formatTime(time.Now()), weekID)
	return err
}
