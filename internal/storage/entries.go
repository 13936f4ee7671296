package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bilancio/internal/core"
)

const entryColumns = "id, owner_id, amount_cents, kind, category, subcategory, entry_date, description, created_at, updated_at"

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e *core.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Amount.Cents, string(e.Kind), e.Category, e.Subcategory,
		toUnix(e.Date), e.Description, toUnix(e.CreatedAt), toUnix(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, ownerID, id string) (*core.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanEntry(row)
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e *core.Entry) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE entries
		SET amount_cents = ?, kind = ?, category = ?, subcategory = ?,
		    entry_date = ?, description = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		e.Amount.Cents, string(e.Kind), e.Category, e.Subcategory,
		toUnix(e.Date), e.Description, toUnix(e.UpdatedAt),
		e.ID, e.OwnerID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM entries WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, ownerID string, f core.EntryFilter) ([]core.Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries WHERE owner_id = ?"
	args := []any{ownerID}

	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.From != nil {
		query += " AND entry_date >= ?"
		args = append(args, toUnix(*f.From))
	}
	if f.To != nil {
		query += " AND entry_date <= ?"
		args = append(args, toUnix(*f.To))
	}
	if f.Search != "" {
		query += " AND (description LIKE ? OR category LIKE ?)"
		pattern := "%" + strings.ReplaceAll(f.Search, "%", "") + "%"
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY entry_date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SumExpenses(ctx context.Context, ownerID, category string, from, to time.Time) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(ABS(amount_cents)), 0)
		FROM entries
		WHERE owner_id = ? AND kind = ? AND category = ?
		  AND entry_date BETWEEN ? AND ?`,
		ownerID, string(core.KindExpense), category, toUnix(from), toUnix(to)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return sum, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*core.Entry, error) {
	var (
		e                           core.Entry
		kind                        string
		entryDate, created, updated int64
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.Amount.Cents, &kind, &e.Category,
		&e.Subcategory, &entryDate, &e.Description, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.Kind = core.EntryKind(kind)
	e.Date = fromUnix(entryDate)
	e.CreatedAt = fromUnix(created)
	e.UpdatedAt = fromUnix(updated)
	return &e, nil
}

// requireRow converts a zero-row update or delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
