package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

const notificationColumns = `id, owner_id, type, title, message, priority,
	is_read, is_archived, metadata, expires_at, created_at, read_at`

func (r *SQLiteRepository) CreateNotification(ctx context.Context, n *core.Notification) error {
	metadata, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.OwnerID, string(n.Type), n.Title, n.Message, string(n.Priority),
		n.IsRead, n.IsArchived, metadata, toNullUnix(n.ExpiresAt),
		toUnix(n.CreatedAt), toNullUnix(n.ReadAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetNotification(ctx context.Context, ownerID, id string) (*core.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanNotification(row)
}

// ListNotifications returns unarchived notifications, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, ownerID string, f core.NotificationFilter) ([]core.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications WHERE owner_id = ? AND is_archived = 0"
	args := []any{ownerID}

	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.Priority != "" {
		query += " AND priority = ?"
		args = append(args, string(f.Priority))
	}
	if f.IsRead != nil {
		query += " AND is_read = ?"
		args = append(args, *f.IsRead)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// MarkRead stamps the read time once; an already read row is untouched.
func (r *SQLiteRepository) MarkRead(ctx context.Context, ownerID, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1, read_at = ?
		WHERE id = ? AND owner_id = ? AND is_read = 0`,
		toUnix(at), id, ownerID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	// Nothing updated: either already read (fine) or missing.
	_, err = r.GetNotification(ctx, ownerID, id)
	return err
}

func (r *SQLiteRepository) MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1, read_at = ?
		WHERE owner_id = ? AND is_read = 0 AND is_archived = 0`,
		toUnix(at), ownerID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) ArchiveNotification(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_archived = 1
		WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("archive notification: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteNotification(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) UnreadCount(ctx context.Context, ownerID string, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE owner_id = ? AND is_read = 0 AND is_archived = 0
		  AND (expires_at IS NULL OR expires_at > ?)`,
		ownerID, toUnix(now)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}

func marshalMetadata(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func scanNotification(row rowScanner) (*core.Notification, error) {
	var (
		n               core.Notification
		ntype, priority string
		metadata        sql.NullString
		expires, readAt sql.NullInt64
		created         int64
	)
	err := row.Scan(&n.ID, &n.OwnerID, &ntype, &n.Title, &n.Message, &priority,
		&n.IsRead, &n.IsArchived, &metadata, &expires, &created, &readAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.Type = core.NotificationType(ntype)
	n.Priority = core.NotificationPriority(priority)
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &n.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	n.ExpiresAt = fromNullUnix(expires)
	n.CreatedAt = fromUnix(created)
	n.ReadAt = fromNullUnix(readAt)
	return &n, nil
}
