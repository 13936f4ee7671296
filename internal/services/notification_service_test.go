package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage/memory"
)

func newNotifFixture(t *testing.T) (*NotificationService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	s := NewNotificationService(memory.New())
	s.nowFn = clock.Now
	return s, clock
}

func validNotification(owner string) core.Notification {
	return core.Notification{
		OwnerID: owner,
		Type:    core.NotifySystemUpdate,
		Title:   "Maintenance window",
		Message: "Scheduled maintenance tonight",
	}
}

func TestNotificationService_CreateDefaultsPriority(t *testing.T) {
	ctx := context.Background()
	s, _ := newNotifFixture(t)

	n, err := s.Create(ctx, validNotification("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.Priority != core.NotifyMedium {
		t.Errorf("Priority = %v, want %v", n.Priority, core.NotifyMedium)
	}
	if n.IsRead || n.ReadAt != nil {
		t.Error("new notification must start unread")
	}
}

func TestNotificationService_MarkReadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, clock := newNotifFixture(t)

	n, err := s.Create(ctx, validNotification("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := s.MarkRead(ctx, "owner-1", n.ID)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !first.IsRead || first.ReadAt == nil {
		t.Fatal("MarkRead did not stamp read state")
	}

	clock.Advance(time.Hour)
	second, err := s.MarkRead(ctx, "owner-1", n.ID)
	if err != nil {
		t.Fatalf("MarkRead again: %v", err)
	}
	if !second.ReadAt.Equal(*first.ReadAt) {
		t.Errorf("ReadAt moved on repeat mark: %v -> %v", first.ReadAt, second.ReadAt)
	}
}

func TestNotificationService_UnreadCount(t *testing.T) {
	ctx := context.Background()
	s, clock := newNotifFixture(t)

	plain, err := s.Create(ctx, validNotification("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	read, err := s.Create(ctx, validNotification("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	archived, err := s.Create(ctx, validNotification("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	expiring := validNotification("owner-1")
	exp := clock.Now().Add(30 * time.Minute)
	expiring.ExpiresAt = &exp
	if _, err := s.Create(ctx, expiring); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Another owner's unread must not leak into the count.
	if _, err := s.Create(ctx, validNotification("owner-2")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.MarkRead(ctx, "owner-1", read.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if _, err := s.Archive(ctx, "owner-1", archived.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	got, err := s.UnreadCount(ctx, "owner-1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if got != 2 {
		t.Fatalf("UnreadCount = %d, want 2 (plain + not-yet-expired)", got)
	}

	// Once the expiring one lapses only the plain one counts.
	clock.Advance(time.Hour)
	got, err = s.UnreadCount(ctx, "owner-1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if got != 1 {
		t.Fatalf("UnreadCount after expiry = %d, want 1", got)
	}
	_ = plain
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	ctx := context.Background()
	s, _ := newNotifFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, validNotification("owner-1")); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := s.Create(ctx, validNotification("owner-2")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := s.MarkAllRead(ctx, "owner-1")
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if n != 3 {
		t.Errorf("MarkAllRead = %d, want 3", n)
	}

	count, err := s.UnreadCount(ctx, "owner-1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 0 {
		t.Errorf("UnreadCount = %d, want 0", count)
	}
	other, err := s.UnreadCount(ctx, "owner-2")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if other != 1 {
		t.Errorf("other owner's UnreadCount = %d, want 1", other)
	}
}

func TestNotificationService_ArchiveHidesFromListing(t *testing.T) {
	ctx := context.Background()
	s, _ := newNotifFixture(t)

	n, err := s.Create(ctx, validNotification("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Archive(ctx, "owner-1", n.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	// Archiving twice is a no-op.
	if _, err := s.Archive(ctx, "owner-1", n.ID); err != nil {
		t.Fatalf("Archive twice: %v", err)
	}

	ns, err := s.List(ctx, "owner-1", core.NotificationFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ns) != 0 {
		t.Errorf("listed = %d, want archived hidden", len(ns))
	}

	// Archived notifications stay fetchable by id.
	got, err := s.Get(ctx, "owner-1", n.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsArchived {
		t.Error("IsArchived = false, want true")
	}
}

func TestNotificationService_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	s, _ := newNotifFixture(t)

	n, err := s.Create(ctx, validNotification("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.Get(ctx, "owner-2", n.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign Get error = %v, want ErrNotFound", err)
	}
	if _, err := s.MarkRead(ctx, "owner-2", n.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign MarkRead error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "owner-2", n.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign Delete error = %v, want ErrNotFound", err)
	}
}
