package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

const goalColumns = `id, owner_id, title, description, type,
	target_amount_cents, current_amount_cents, target_date, start_date,
	priority, status, recurring_amount_cents, recurring_frequency,
	next_due_at, created_at, updated_at`

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g *core.Goal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Title, g.Description, string(g.Type),
		g.TargetAmount.Cents, g.CurrentAmount.Cents,
		toUnix(g.TargetDate), toUnix(g.StartDate),
		string(g.Priority), string(g.Status),
		g.Recurring.Amount.Cents, string(g.Recurring.Frequency),
		toNullUnix(g.Recurring.NextDueAt),
		toUnix(g.CreatedAt), toUnix(g.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}

	for i, m := range g.Milestones {
		if err := insertMilestone(ctx, tx, g.ID, m, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, ownerID, id string) (*core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+goalColumns+` FROM goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	g, err := scanGoal(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadMilestones(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateGoal rewrites the goal row. Milestone rows are managed separately
// through AddMilestone and AchieveMilestone, so a stale in-memory copy can
// never clobber a latched achievement.
func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g *core.Goal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET title = ?, description = ?, type = ?, target_amount_cents = ?,
		    target_date = ?, priority = ?, recurring_amount_cents = ?,
		    recurring_frequency = ?, next_due_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		g.Title, g.Description, string(g.Type), g.TargetAmount.Cents,
		toUnix(g.TargetDate), string(g.Priority), g.Recurring.Amount.Cents,
		string(g.Recurring.Frequency), toNullUnix(g.Recurring.NextDueAt),
		toUnix(g.UpdatedAt),
		g.ID, g.OwnerID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM goals WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, ownerID string, f core.GoalFilter) ([]core.Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals WHERE owner_id = ?"
	args := []any{ownerID}

	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		query += " AND priority = ?"
		args = append(args, string(f.Priority))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadMilestones(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteRepository) AddToCurrentAmount(ctx context.Context, ownerID, id string, cents int64, at time.Time) (*core.Goal, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET current_amount_cents = current_amount_cents + ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		cents, toUnix(at), id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("add to current amount: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return r.GetGoal(ctx, ownerID, id)
}

// AchieveMilestone only matches an unachieved milestone, so each one is
// latched by exactly one caller.
func (r *SQLiteRepository) AchieveMilestone(ctx context.Context, ownerID, goalID, milestoneID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goal_milestones
		SET is_achieved = 1, achieved_at = ?
		WHERE id = ? AND is_achieved = 0
		  AND goal_id IN (SELECT id FROM goals WHERE id = ? AND owner_id = ?)`,
		toUnix(at), milestoneID, goalID, ownerID)
	if err != nil {
		return false, fmt.Errorf("achieve milestone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// CompleteGoal moves active to completed only once the balance covers the
// target. Concurrent contributions elect exactly one winner.
func (r *SQLiteRepository) CompleteGoal(ctx context.Context, ownerID, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET status = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND status = ?
		  AND current_amount_cents >= target_amount_cents`,
		string(core.GoalCompleted), toUnix(at),
		id, ownerID, string(core.GoalActive))
	if err != nil {
		return false, fmt.Errorf("complete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) AddMilestone(ctx context.Context, ownerID, goalID string, m core.Milestone) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM goal_milestones
		WHERE goal_id IN (SELECT id FROM goals WHERE id = ? AND owner_id = ?)`,
		goalID, ownerID).Scan(&position)
	if err != nil {
		return fmt.Errorf("count milestones: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM goals WHERE id = ? AND owner_id = ?",
		goalID, ownerID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check goal: %w", err)
	}
	if exists == 0 {
		return core.ErrNotFound
	}

	if err := insertMilestone(ctx, tx, goalID, m, position); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) SetGoalStatus(ctx context.Context, ownerID, id string, status core.GoalStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET status = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		string(status), toUnix(at), id, ownerID)
	if err != nil {
		return fmt.Errorf("set goal status: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) SetNextDue(ctx context.Context, ownerID, id string, next, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET next_due_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		toUnix(next), toUnix(at), id, ownerID)
	if err != nil {
		return fmt.Errorf("set next due: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListDueRecurring(ctx context.Context, now time.Time) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE status = ? AND next_due_at IS NOT NULL AND next_due_at <= ?`,
		string(core.GoalActive), toUnix(now))
	if err != nil {
		return nil, fmt.Errorf("list due recurring: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// AdvanceNextDue only matches while the stored due time equals from, so
// overlapping sweeps advance the schedule once.
func (r *SQLiteRepository) AdvanceNextDue(ctx context.Context, ownerID, id string, from, to, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET next_due_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND next_due_at = ?`,
		toUnix(to), toUnix(at), id, ownerID, toUnix(from))
	if err != nil {
		return false, fmt.Errorf("advance next due: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) loadMilestones(ctx context.Context, g *core.Goal) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, target_amount_cents, deadline, is_achieved, achieved_at
		FROM goal_milestones WHERE goal_id = ? ORDER BY position`, g.ID)
	if err != nil {
		return fmt.Errorf("load milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m                    core.Milestone
			deadline, achievedAt sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.TargetAmount.Cents,
			&deadline, &m.IsAchieved, &achievedAt); err != nil {
			return fmt.Errorf("scan milestone: %w", err)
		}
		m.Deadline = fromNullUnix(deadline)
		m.AchievedAt = fromNullUnix(achievedAt)
		g.Milestones = append(g.Milestones, m)
	}
	return rows.Err()
}

func insertMilestone(ctx context.Context, tx *sql.Tx, goalID string, m core.Milestone, position int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO goal_milestones
			(id, goal_id, name, target_amount_cents, deadline, is_achieved, achieved_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, goalID, m.Name, m.TargetAmount.Cents,
		toNullUnix(m.Deadline), m.IsAchieved, toNullUnix(m.AchievedAt), position)
	if err != nil {
		return fmt.Errorf("insert milestone: %w", err)
	}
	return nil
}

func scanGoal(row rowScanner) (*core.Goal, error) {
	var (
		g                          core.Goal
		goalType, priority, status string
		frequency                  string
		targetDate, startDate      int64
		nextDue                    sql.NullInt64
		created, updated           int64
	)
	err := row.Scan(&g.ID, &g.OwnerID, &g.Title, &g.Description, &goalType,
		&g.TargetAmount.Cents, &g.CurrentAmount.Cents, &targetDate, &startDate,
		&priority, &status, &g.Recurring.Amount.Cents, &frequency,
		&nextDue, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	g.Type = core.GoalType(goalType)
	g.Priority = core.GoalPriority(priority)
	g.Status = core.GoalStatus(status)
	g.Recurring.Frequency = core.Period(frequency)
	g.TargetDate = fromUnix(targetDate)
	g.StartDate = fromUnix(startDate)
	g.Recurring.NextDueAt = fromNullUnix(nextDue)
	g.CreatedAt = fromUnix(created)
	g.UpdatedAt = fromUnix(updated)
	return &g, nil
}
