package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// NotificationService owns the notification lifecycle. Alert producers go
// through Dispatch, which never fails their calling operation; user-facing
// reads and read/archive mutations go through the other methods.
type NotificationService struct {
	store NotificationStore
	nowFn func() time.Time
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{
		store: store,
		nowFn: time.Now,
	}
}

// Create validates and persists a notification. Every call creates a new
// row: dedup is the caller's job (budgets claim an alert window first).
func (s *NotificationService) Create(ctx context.Context, n core.Notification) (*core.Notification, error) {
	if n.Priority == "" {
		n.Priority = core.NotifyMedium
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	n.ID = uuid.NewString()
	n.CreatedAt = s.nowFn().UTC()
	n.IsRead = false
	n.IsArchived = false
	n.ReadAt = nil

	if err := s.store.CreateNotification(ctx, &n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return &n, nil
}

// Dispatch creates a notification on behalf of another service. Failures
// are logged and swallowed: a lost alert must never fail the mutation that
// produced it.
func (s *NotificationService) Dispatch(ctx context.Context, n core.Notification) {
	created, err := s.Create(ctx, n)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dispatch notification",
			"owner_id", n.OwnerID,
			"type", n.Type,
			"title", n.Title,
			"error", err)
		return
	}
	slog.InfoContext(ctx, "Notification dispatched",
		"id", created.ID,
		"owner_id", created.OwnerID,
		"type", created.Type,
		"priority", created.Priority)
}

func (s *NotificationService) Get(ctx context.Context, ownerID, id string) (*core.Notification, error) {
	return s.store.GetNotification(ctx, ownerID, id)
}

func (s *NotificationService) List(ctx context.Context, ownerID string, f core.NotificationFilter) ([]core.Notification, error) {
	return s.store.ListNotifications(ctx, ownerID, f)
}

// MarkRead stamps the read time once. Re-reading an already read
// notification is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, ownerID, id string) (*core.Notification, error) {
	if err := s.store.MarkRead(ctx, ownerID, id, s.nowFn().UTC()); err != nil {
		return nil, err
	}
	return s.store.GetNotification(ctx, ownerID, id)
}

// MarkAllRead marks every unread notification read and returns how many
// it touched.
func (s *NotificationService) MarkAllRead(ctx context.Context, ownerID string) (int, error) {
	n, err := s.store.MarkAllRead(ctx, ownerID, s.nowFn().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}

// Archive hides the notification from default listings. Idempotent.
func (s *NotificationService) Archive(ctx context.Context, ownerID, id string) (*core.Notification, error) {
	if err := s.store.ArchiveNotification(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.store.GetNotification(ctx, ownerID, id)
}

func (s *NotificationService) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteNotification(ctx, ownerID, id)
}

// UnreadCount counts unread, unarchived, unexpired notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, ownerID string) (int, error) {
	return s.store.UnreadCount(ctx, ownerID, s.nowFn().UTC())
}
