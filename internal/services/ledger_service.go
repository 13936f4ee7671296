package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// LargeMovementCents is the absolute amount above which a transaction
// alert is raised.
const LargeMovementCents int64 = 100_000

// BudgetRecomputer reacts to ledger mutations by recomputing affected
// budget aggregates.
type BudgetRecomputer interface {
	OnEntryMutation(ctx context.Context, before, after *core.Entry)
}

// LedgerService is the single write path into the ledger. Every mutation
// synchronously recomputes the budgets it touches, then best-effort
// publishes the mutation for downstream consumers.
type LedgerService struct {
	store     LedgerStore
	budgets   BudgetRecomputer
	notifier  *NotificationService
	publisher MutationPublisher
	nowFn     func() time.Time
}

func NewLedgerService(store LedgerStore, budgets BudgetRecomputer, notifier *NotificationService, publisher MutationPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		budgets:   budgets,
		notifier:  notifier,
		publisher: publisher,
		nowFn:     time.Now,
	}
}

// CreateEntry validates and persists a user-submitted entry, recomputes
// affected budgets, and raises a transaction alert for large movements.
func (s *LedgerService) CreateEntry(ctx context.Context, e core.Entry) (*core.Entry, error) {
	created, err := s.persistNew(ctx, e)
	if err != nil {
		return nil, err
	}
	s.alertLargeMovement(ctx, created)
	return created, nil
}

// RecordEntry persists an entry produced by another service. Same write
// path as CreateEntry minus the large-movement alert: a deliberate goal
// contribution is not a suspicious transaction.
func (s *LedgerService) RecordEntry(ctx context.Context, e *core.Entry) (*core.Entry, error) {
	return s.persistNew(ctx, *e)
}

func (s *LedgerService) persistNew(ctx context.Context, e core.Entry) (*core.Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	now := s.nowFn().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := s.store.CreateEntry(ctx, &e); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	s.budgets.OnEntryMutation(ctx, nil, &e)
	s.publish(ctx, "created", &e)
	return &e, nil
}

// UpdateEntry replaces an existing entry. Both the old and the new shape
// feed the recompute, so moving an entry across categories or dates fixes
// both sides.
func (s *LedgerService) UpdateEntry(ctx context.Context, e core.Entry) (*core.Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	old, err := s.store.GetEntry(ctx, e.OwnerID, e.ID)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = s.nowFn().UTC()

	if err := s.store.UpdateEntry(ctx, &e); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	s.budgets.OnEntryMutation(ctx, old, &e)
	s.publish(ctx, "updated", &e)
	return &e, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, ownerID, id string) error {
	old, err := s.store.GetEntry(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.budgets.OnEntryMutation(ctx, old, nil)
	s.publish(ctx, "deleted", old)
	return nil
}

func (s *LedgerService) GetEntry(ctx context.Context, ownerID, id string) (*core.Entry, error) {
	return s.store.GetEntry(ctx, ownerID, id)
}

func (s *LedgerService) ListEntries(ctx context.Context, ownerID string, f core.EntryFilter) ([]core.Entry, error) {
	return s.store.ListEntries(ctx, ownerID, f)
}

func (s *LedgerService) alertLargeMovement(ctx context.Context, e *core.Entry) {
	if s.notifier == nil || e.Amount.Abs().Cents <= LargeMovementCents {
		return
	}
	s.notifier.Dispatch(ctx, core.Notification{
		OwnerID:  e.OwnerID,
		Type:     core.NotifyTransactionAlert,
		Title:    "Large transaction recorded",
		Message:  fmt.Sprintf("A %s of %s was recorded in %s: %s", e.Kind, e.Amount.Abs(), e.Category, e.Description),
		Priority: core.NotifyHigh,
		Metadata: map[string]any{
			"entryId":     e.ID,
			"amountCents": e.Amount.Cents,
			"category":    e.Category,
		},
	})
}

func (s *LedgerService) publish(ctx context.Context, action string, e *core.Entry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntryMutation(ctx, action, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry mutation",
			"action", action,
			"entry_id", e.ID,
			"error", err)
		// Ledger write already succeeded, do not surface.
	}
}
