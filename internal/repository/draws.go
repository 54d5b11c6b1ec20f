package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/abrezinsky/moherun/internal/models"
)

var drawColumns = []string{"week_id", "id", "winners", "task", "makeup", "drawn_at"}

type scanner interface {
	Scan(dest ...any) error
}

func scanDrawResult(s scanner) (*models.DrawResult, error) {
	var (
		res     models.DrawResult
		winners string
		drawnAt string
	)
	if err := s.Scan(&res.WeekID, &res.ID, &winners, &res.Task, &res.Makeup, &drawnAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(winners), &res.Winners); err != nil {
		return nil, fmt.Errorf("draw result %s: bad winners: %w", res.WeekID, err)
	}
	res.DrawnAt = parseTime(drawnAt)
	return &res, nil
}

// GetDrawResult returns the stored result of weekID or ErrNotFound.
func (r *Repository) GetDrawResult(ctx context.Context, weekID string) (*models.DrawResult, error) {
	query, args, err := sq.Select(drawColumns...).From("draw_results").Where(sq.Eq{"week_id": weekID}).ToSql()
	if err != nil {
		return nil, err
	}
	res, err := scanDrawResult(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return res, err
}

// SaveDrawResult stores res unless its week already has a result. It always returns
// the stored row, so a losing concurrent writer gets the winner's result and
// created=false.
func (r *Repository) SaveDrawResult(ctx context.Context, res models.DrawResult) (*models.DrawResult, bool, error) {
	if res.DrawnAt.IsZero() {
		res.DrawnAt = time.Now()
	}
	winners, _ := json.Marshal(res.Winners) // Marshal on []string never fails

	out, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO draw_results (week_id, id, winners, task, makeup, drawn_at) VALUES (?, ?, ?, ?, ?, ?)`,
		res.WeekID, res.ID, string(winners), res.Task, res.Makeup, formatTime(res.DrawnAt))
	if err != nil {
		return nil, false, err
	}
	n, err := out.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	stored, err := r.GetDrawResult(ctx, res.WeekID)
	if err != nil {
		return nil, false, err
	}
	return stored, n > 0, nil
}

// ListDrawResults returns results newest first. limit <= 0 means all.
func (r *Repository) ListDrawResults(ctx context.Context, limit int) ([]models.DrawResult, error) {
	b := sq.Select(drawColumns...).From("draw_results").OrderBy("drawn_at DESC", "week_id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.queryDrawResults(ctx, b)
}

// ListUnsyncedDrawResults returns results not yet confirmed by the external store.
func (r *Repository) ListUnsyncedDrawResults(ctx context.Context) ([]models.DrawResult, error) {
	b := sq.Select(drawColumns...).From("draw_results").Where(sq.Eq{"synced_at": nil}).OrderBy("drawn_at")
	return r.queryDrawResults(ctx, b)
}

func (r *Repository) queryDrawResults(ctx context.Context, b sq.SelectBuilder) ([]models.DrawResult, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.DrawResult{}
	for rows.Next() {
		res, err := scanDrawResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// MarkDrawSynced records that the external store has weekID's result.
func (r *Repository) MarkDrawSynced(ctx context.Context, weekID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE draw_results SET synced_at = ? WHERE week_id = ?`, formatTime(time.Now()), weekID)
	return err
}

// ListUsedTasks returns the distinct tasks of all stored results.
func (r *Repository) ListUsedTasks(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("task").Distinct().From("draw_results").OrderBy("task").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []string{}
	for rows.Next() {
		var task string
		if err := rows.Scan(&task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
