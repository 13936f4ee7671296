package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

const budgetColumns = `id, owner_id, name, description, category, subcategory,
	amount_cents, spent_cents, period, start_date, end_date, is_active,
	alerts_enabled, alert_threshold, last_alert_sent_at, created_at, updated_at`

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Name, b.Description, b.Category, b.Subcategory,
		b.Amount.Cents, b.Spent.Cents, string(b.Period),
		toUnix(b.StartDate), toUnix(b.EndDate), b.IsActive,
		b.Alerts.Enabled, b.Alerts.ThresholdPercent, toNullUnix(b.Alerts.LastAlertSentAt),
		toUnix(b.CreatedAt), toUnix(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, ownerID, id string) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanBudget(row)
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b *core.Budget) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets
		SET name = ?, description = ?, category = ?, subcategory = ?,
		    amount_cents = ?, period = ?, start_date = ?, end_date = ?,
		    is_active = ?, alerts_enabled = ?, alert_threshold = ?,
		    last_alert_sent_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		b.Name, b.Description, b.Category, b.Subcategory,
		b.Amount.Cents, string(b.Period), toUnix(b.StartDate), toUnix(b.EndDate),
		b.IsActive, b.Alerts.Enabled, b.Alerts.ThresholdPercent,
		toNullUnix(b.Alerts.LastAlertSentAt), toUnix(b.UpdatedAt),
		b.ID, b.OwnerID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM budgets WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID string, f core.BudgetFilter) ([]core.Budget, error) {
	query := "SELECT " + budgetColumns + " FROM budgets WHERE owner_id = ?"
	args := []any{ownerID}

	if f.Period != "" {
		query += " AND period = ?"
		args = append(args, string(f.Period))
	}
	if f.IsActive != nil {
		query += " AND is_active = ?"
		args = append(args, *f.IsActive)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) FindOverlap(ctx context.Context, ownerID, category string, start, end time.Time, excludeID string) (*core.Budget, error) {
	// Inclusive on both ends: touching windows conflict. Only active
	// budgets count, a deactivated one frees its window.
	row := r.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE owner_id = ? AND category = ? AND id != ? AND is_active = 1
		  AND start_date <= ? AND end_date >= ?
		LIMIT 1`,
		ownerID, category, excludeID, toUnix(end), toUnix(start))
	return scanBudget(row)
}

func (r *SQLiteRepository) SetSpent(ctx context.Context, ownerID, id string, cents int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE budgets SET spent_cents = ? WHERE id = ? AND owner_id = ?",
		cents, id, ownerID)
	if err != nil {
		return fmt.Errorf("set spent: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ActiveBudgetsCovering(ctx context.Context, ownerID, category string, at time.Time) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE owner_id = ? AND category = ? AND is_active = 1
		  AND start_date <= ? AND end_date >= ?`,
		ownerID, category, toUnix(at), toUnix(at))
	if err != nil {
		return nil, fmt.Errorf("budgets covering date: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ClaimAlertWindow is the conditional write behind alert dedup: the UPDATE
// only matches when no alert was stamped within the window, so concurrent
// recomputes elect exactly one sender.
func (r *SQLiteRepository) ClaimAlertWindow(ctx context.Context, ownerID, id string, now time.Time, window time.Duration) (bool, error) {
	cutoff := now.Add(-window)
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets SET last_alert_sent_at = ?
		WHERE id = ? AND owner_id = ?
		  AND (last_alert_sent_at IS NULL OR last_alert_sent_at <= ?)`,
		toUnix(now), id, ownerID, toUnix(cutoff))
	if err != nil {
		return false, fmt.Errorf("claim alert window: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func scanBudget(row rowScanner) (*core.Budget, error) {
	var (
		b                core.Budget
		period           string
		start, end       int64
		lastAlert        sql.NullInt64
		created, updated int64
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Description, &b.Category,
		&b.Subcategory, &b.Amount.Cents, &b.Spent.Cents, &period,
		&start, &end, &b.IsActive,
		&b.Alerts.Enabled, &b.Alerts.ThresholdPercent, &lastAlert,
		&created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan budget: %w", err)
	}
	b.Period = core.Period(period)
	b.StartDate = fromUnix(start)
	b.EndDate = fromUnix(end)
	b.Alerts.LastAlertSentAt = fromNullUnix(lastAlert)
	b.CreatedAt = fromUnix(created)
	b.UpdatedAt = fromUnix(updated)
	return &b, nil
}
