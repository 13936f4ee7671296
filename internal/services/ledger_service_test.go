package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage/memory"
)

type recordingPublisher struct {
	mu      sync.Mutex
	actions []string
	fail    bool
}

func (p *recordingPublisher) PublishEntryMutation(_ context.Context, action string, _ *core.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.actions = append(p.actions, action)
	return nil
}

type ledgerFixture struct {
	store     *memory.Store
	clock     *fakeClock
	ledger    *LedgerService
	budgets   *BudgetService
	notifs    *NotificationService
	publisher *recordingPublisher
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := memory.New()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}

	notifs := NewNotificationService(store)
	notifs.nowFn = clock.Now

	budgets := NewBudgetService(store, store, notifs)
	budgets.nowFn = clock.Now

	publisher := &recordingPublisher{}
	ledger := NewLedgerService(store, budgets, notifs, publisher)
	ledger.nowFn = clock.Now

	return &ledgerFixture{store: store, clock: clock, ledger: ledger, budgets: budgets, notifs: notifs, publisher: publisher}
}

func validEntry(owner string) core.Entry {
	return core.Entry{
		OwnerID:     owner,
		Amount:      core.Money{Cents: 45_00},
		Kind:        core.KindExpense,
		Category:    "food",
		Date:        date(2024, 3, 8),
		Description: "weekly shop",
	}
}

func TestLedgerService_CreateRecomputesBudget(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	b, err := f.budgets.Create(ctx, validBudget("owner-1"))
	if err != nil {
		t.Fatalf("Create budget: %v", err)
	}

	if _, err := f.ledger.CreateEntry(ctx, validEntry("owner-1")); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	got, err := f.budgets.Get(ctx, "owner-1", b.ID)
	if err != nil {
		t.Fatalf("Get budget: %v", err)
	}
	if got.Spent.Cents != 45_00 {
		t.Errorf("Spent = %d, want %d", got.Spent.Cents, 45_00)
	}
}

func TestLedgerService_UpdateMovesSpendAcrossCategories(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	food, err := f.budgets.Create(ctx, validBudget("owner-1"))
	if err != nil {
		t.Fatalf("Create budget: %v", err)
	}
	transportBudget := validBudget("owner-1")
	transportBudget.Name = "Transport March"
	transportBudget.Category = "transport"
	transport, err := f.budgets.Create(ctx, transportBudget)
	if err != nil {
		t.Fatalf("Create budget: %v", err)
	}

	e, err := f.ledger.CreateEntry(ctx, validEntry("owner-1"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	moved := *e
	moved.Category = "transport"
	if _, err := f.ledger.UpdateEntry(ctx, moved); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}

	gotFood, err := f.budgets.Get(ctx, "owner-1", food.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	gotTransport, err := f.budgets.Get(ctx, "owner-1", transport.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotFood.Spent.Cents != 0 {
		t.Errorf("food Spent = %d, want 0", gotFood.Spent.Cents)
	}
	if gotTransport.Spent.Cents != 45_00 {
		t.Errorf("transport Spent = %d, want %d", gotTransport.Spent.Cents, 45_00)
	}
}

func TestLedgerService_DeleteRecomputesBudget(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	b, err := f.budgets.Create(ctx, validBudget("owner-1"))
	if err != nil {
		t.Fatalf("Create budget: %v", err)
	}
	e, err := f.ledger.CreateEntry(ctx, validEntry("owner-1"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if err := f.ledger.DeleteEntry(ctx, "owner-1", e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	got, err := f.budgets.Get(ctx, "owner-1", b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Spent.Cents != 0 {
		t.Errorf("Spent after delete = %d, want 0", got.Spent.Cents)
	}
}

func TestLedgerService_LargeMovementAlert(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	tests := []struct {
		name       string
		cents      int64
		wantAlerts int
	}{
		{"at threshold stays quiet", 1_000_00, 0},
		{"just above alerts", 1_000_01, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner := "owner-" + tt.name
			e := validEntry(owner)
			e.Amount = core.Money{Cents: tt.cents}
			if _, err := f.ledger.CreateEntry(ctx, e); err != nil {
				t.Fatalf("CreateEntry: %v", err)
			}
			ns, err := f.notifs.List(ctx, owner, core.NotificationFilter{Type: core.NotifyTransactionAlert})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(ns) != tt.wantAlerts {
				t.Errorf("transaction alerts = %d, want %d", len(ns), tt.wantAlerts)
			}
		})
	}
}

func TestLedgerService_RecordEntrySkipsLargeMovementAlert(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	e := validEntry("owner-1")
	e.Amount = core.Money{Cents: -2_000_00}
	e.Category = core.ContributionCategory
	e.Subcategory = core.ContributionSubcategory
	if _, err := f.ledger.RecordEntry(ctx, &e); err != nil {
		t.Fatalf("RecordEntry: %v", err)
	}

	ns, err := f.notifs.List(ctx, "owner-1", core.NotificationFilter{Type: core.NotifyTransactionAlert})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ns) != 0 {
		t.Errorf("transaction alerts = %d, want 0 for recorded entries", len(ns))
	}
}

func TestLedgerService_PublishesMutations(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	e, err := f.ledger.CreateEntry(ctx, validEntry("owner-1"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	upd := *e
	upd.Description = "weekly shop, corrected"
	if _, err := f.ledger.UpdateEntry(ctx, upd); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if err := f.ledger.DeleteEntry(ctx, "owner-1", e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	want := []string{"created", "updated", "deleted"}
	if len(f.publisher.actions) != len(want) {
		t.Fatalf("published actions = %v, want %v", f.publisher.actions, want)
	}
	for i := range want {
		if f.publisher.actions[i] != want[i] {
			t.Errorf("action[%d] = %q, want %q", i, f.publisher.actions[i], want[i])
		}
	}
}

func TestLedgerService_PublisherFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	f.publisher.fail = true

	e, err := f.ledger.CreateEntry(ctx, validEntry("owner-1"))
	if err != nil {
		t.Fatalf("CreateEntry with failing publisher: %v", err)
	}
	if _, err := f.ledger.GetEntry(ctx, "owner-1", e.ID); err != nil {
		t.Errorf("entry not persisted: %v", err)
	}
}

func TestLedgerService_ValidationAndScoping(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	bad := validEntry("owner-1")
	bad.Amount = core.Money{}
	var ve *core.ValidationError
	if _, err := f.ledger.CreateEntry(ctx, bad); !errors.As(err, &ve) {
		t.Errorf("zero amount error = %v, want *ValidationError", err)
	}

	e, err := f.ledger.CreateEntry(ctx, validEntry("owner-1"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if _, err := f.ledger.GetEntry(ctx, "owner-2", e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign GetEntry error = %v, want ErrNotFound", err)
	}
	if err := f.ledger.DeleteEntry(ctx, "owner-2", e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign DeleteEntry error = %v, want ErrNotFound", err)
	}
}
