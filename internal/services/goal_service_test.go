package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage/memory"
)

type goalFixture struct {
	store  *memory.Store
	clock  *fakeClock
	goals  *GoalService
	ledger *LedgerService
	notifs *NotificationService
}

func newGoalFixture(t *testing.T) *goalFixture {
	t.Helper()
	store := memory.New()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}

	notifs := NewNotificationService(store)
	notifs.nowFn = clock.Now

	budgets := NewBudgetService(store, store, notifs)
	budgets.nowFn = clock.Now

	ledger := NewLedgerService(store, budgets, notifs, nil)
	ledger.nowFn = clock.Now

	goals := NewGoalService(store, ledger, notifs)
	goals.nowFn = clock.Now

	return &goalFixture{store: store, clock: clock, goals: goals, ledger: ledger, notifs: notifs}
}

func validGoal(owner string) core.Goal {
	return core.Goal{
		OwnerID:      owner,
		Title:        "Vacation fund",
		Type:         core.GoalSavings,
		TargetAmount: core.Money{Cents: 1_000_00},
		TargetDate:   date(2025, 6, 1),
	}
}

func (f *goalFixture) achievements(t *testing.T, ctx context.Context, owner string) []core.Notification {
	t.Helper()
	ns, err := f.notifs.List(ctx, owner, core.NotificationFilter{Type: core.NotifyAchievement})
	if err != nil {
		t.Fatalf("List notifications: %v", err)
	}
	return ns
}

func TestGoalService_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g, err := f.goals.Create(ctx, validGoal("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Priority != core.PriorityMedium {
		t.Errorf("Priority = %v, want %v", g.Priority, core.PriorityMedium)
	}
	if g.Status != core.GoalActive {
		t.Errorf("Status = %v, want %v", g.Status, core.GoalActive)
	}
	if g.CurrentAmount.Cents != 0 {
		t.Errorf("CurrentAmount = %d, want 0", g.CurrentAmount.Cents)
	}
}

func TestGoalService_CreateRejectsPastTargetDate(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g := validGoal("owner-1")
	g.TargetDate = date(2024, 1, 1)
	_, err := f.goals.Create(ctx, g)

	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Create error = %v, want *ValidationError", err)
	}
}

func TestGoalService_ContributeCompletesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g, err := f.goals.Create(ctx, validGoal("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.goals.Contribute(ctx, "owner-1", g.ID, 600_00, ""); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	got, err := f.goals.Contribute(ctx, "owner-1", g.ID, 400_00, "")
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	if got.Status != core.GoalCompleted {
		t.Fatalf("Status = %v, want %v", got.Status, core.GoalCompleted)
	}

	completions := 0
	for _, n := range f.achievements(t, ctx, "owner-1") {
		if strings.HasPrefix(n.Title, "Goal completed") {
			completions++
		}
	}
	if completions != 1 {
		t.Errorf("completion alerts = %d, want 1", completions)
	}

	// A completed goal takes no further contributions.
	_, err = f.goals.Contribute(ctx, "owner-1", g.ID, 10_00, "")
	var se *core.StateError
	if !errors.As(err, &se) {
		t.Fatalf("Contribute on completed goal error = %v, want *StateError", err)
	}
}

func TestGoalService_MilestonesLatchOnce(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	draft := validGoal("owner-1")
	draft.Milestones = []core.Milestone{
		{Name: "Halfway", TargetAmount: core.Money{Cents: 500_00}},
		{Name: "First quarter", TargetAmount: core.Money{Cents: 250_00}},
	}
	g, err := f.goals.Create(ctx, draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// One contribution crosses both milestones.
	if _, err := f.goals.Contribute(ctx, "owner-1", g.ID, 600_00, ""); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	got, err := f.goals.Get(ctx, "owner-1", g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, m := range got.Milestones {
		if !m.IsAchieved || m.AchievedAt == nil {
			t.Errorf("milestone %q not latched", m.Name)
		}
	}
	if got := len(f.achievements(t, ctx, "owner-1")); got != 2 {
		t.Fatalf("achievement alerts = %d, want 2", got)
	}

	// Already-achieved milestones stay quiet on further contributions.
	if _, err := f.goals.Contribute(ctx, "owner-1", g.ID, 50_00, ""); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	if got := len(f.achievements(t, ctx, "owner-1")); got != 2 {
		t.Errorf("achievement alerts after re-crossing = %d, want 2", got)
	}
}

func TestGoalService_ContributeMirrorsLedgerEntry(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g, err := f.goals.Create(ctx, validGoal("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.goals.Contribute(ctx, "owner-1", g.ID, 150_00, "march deposit"); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	entries, err := f.ledger.ListEntries(ctx, "owner-1", core.EntryFilter{Category: core.ContributionCategory})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("contribution entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Amount.Cents != -150_00 {
		t.Errorf("Amount = %d, want %d", e.Amount.Cents, -150_00)
	}
	if e.Kind != core.KindExpense {
		t.Errorf("Kind = %v, want %v", e.Kind, core.KindExpense)
	}
	if e.Subcategory != core.ContributionSubcategory {
		t.Errorf("Subcategory = %q, want %q", e.Subcategory, core.ContributionSubcategory)
	}
	if !strings.Contains(e.Description, "march deposit") {
		t.Errorf("Description = %q, want note included", e.Description)
	}
}

func TestGoalService_ContributeRejections(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g, err := f.goals.Create(ctx, validGoal("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var ve *core.ValidationError
	if _, err := f.goals.Contribute(ctx, "owner-1", g.ID, 0, ""); !errors.As(err, &ve) {
		t.Errorf("zero amount error = %v, want *ValidationError", err)
	}
	if _, err := f.goals.Contribute(ctx, "owner-1", g.ID, -5_00, ""); !errors.As(err, &ve) {
		t.Errorf("negative amount error = %v, want *ValidationError", err)
	}

	if _, err := f.goals.SetStatus(ctx, "owner-1", g.ID, core.GoalPaused); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	var se *core.StateError
	if _, err := f.goals.Contribute(ctx, "owner-1", g.ID, 10_00, ""); !errors.As(err, &se) {
		t.Errorf("paused goal error = %v, want *StateError", err)
	}

	if _, err := f.goals.Contribute(ctx, "owner-2", g.ID, 10_00, ""); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign owner error = %v, want ErrNotFound", err)
	}
}

func TestGoalService_RecurringReminderOncePerDueTime(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	draft := validGoal("owner-1")
	draft.Recurring = core.RecurringContribution{
		Amount:    core.Money{Cents: 100_00},
		Frequency: core.Monthly,
	}
	g, err := f.goals.Create(ctx, draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Recurring.NextDueAt == nil {
		t.Fatal("NextDueAt not armed on create")
	}
	firstDue := *g.Recurring.NextDueAt

	// Not due yet.
	n, err := f.goals.ProcessDueRecurring(ctx, firstDue.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ProcessDueRecurring: %v", err)
	}
	if n != 0 {
		t.Fatalf("processed before due = %d, want 0", n)
	}

	// Due: one reminder, schedule advances one period.
	n, err = f.goals.ProcessDueRecurring(ctx, firstDue)
	if err != nil {
		t.Fatalf("ProcessDueRecurring: %v", err)
	}
	if n != 1 {
		t.Fatalf("processed = %d, want 1", n)
	}

	got, err := f.goals.Get(ctx, "owner-1", g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	wantNext := core.AddPeriod(firstDue, core.Monthly)
	if got.Recurring.NextDueAt == nil || !got.Recurring.NextDueAt.Equal(wantNext) {
		t.Errorf("NextDueAt = %v, want %v", got.Recurring.NextDueAt, wantNext)
	}

	// Re-running the sweep for the same instant is a no-op.
	n, err = f.goals.ProcessDueRecurring(ctx, firstDue)
	if err != nil {
		t.Fatalf("ProcessDueRecurring: %v", err)
	}
	if n != 0 {
		t.Errorf("processed on rerun = %d, want 0", n)
	}

	reminders, err := f.notifs.List(ctx, "owner-1", core.NotificationFilter{Type: core.NotifyGoalReminder})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("reminders = %d, want 1", len(reminders))
	}
	if reminders[0].ExpiresAt == nil || !reminders[0].ExpiresAt.Equal(wantNext) {
		t.Errorf("reminder ExpiresAt = %v, want %v", reminders[0].ExpiresAt, wantNext)
	}
}

func TestGoalService_SetupRecurring(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g, err := f.goals.Create(ctx, validGoal("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Recurring.NextDueAt != nil {
		t.Fatal("goal without recurring config should not be armed")
	}

	g, err = f.goals.SetupRecurring(ctx, "owner-1", g.ID, 50_00, core.Monthly)
	if err != nil {
		t.Fatalf("SetupRecurring: %v", err)
	}
	wantNext := core.AddPeriod(f.clock.Now().UTC(), core.Monthly)
	if g.Recurring.NextDueAt == nil || !g.Recurring.NextDueAt.Equal(wantNext) {
		t.Errorf("NextDueAt = %v, want %v", g.Recurring.NextDueAt, wantNext)
	}

	// Setup announces the schedule; the confirmation expires when the
	// first contribution comes due.
	reminders, err := f.notifs.List(ctx, "owner-1", core.NotificationFilter{Type: core.NotifyGoalReminder})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("reminders = %d, want 1", len(reminders))
	}
	if reminders[0].ExpiresAt == nil || !reminders[0].ExpiresAt.Equal(wantNext) {
		t.Errorf("confirmation ExpiresAt = %v, want %v", reminders[0].ExpiresAt, wantNext)
	}

	if _, err := f.goals.SetupRecurring(ctx, "owner-1", g.ID, 0, core.Monthly); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := f.goals.SetupRecurring(ctx, "owner-1", g.ID, 50_00, core.Period("fortnightly")); err == nil {
		t.Error("expected error for unknown frequency")
	}
}

func TestGoalService_SetStatusUnrestricted(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g, err := f.goals.Create(ctx, validGoal("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Any valid lifecycle state is reachable from any other.
	for _, status := range []core.GoalStatus{
		core.GoalPaused, core.GoalCancelled, core.GoalActive, core.GoalCompleted, core.GoalActive,
	} {
		got, err := f.goals.SetStatus(ctx, "owner-1", g.ID, status)
		if err != nil {
			t.Fatalf("SetStatus(%v): %v", status, err)
		}
		if got.Status != status {
			t.Fatalf("Status = %v, want %v", got.Status, status)
		}
	}

	if _, err := f.goals.SetStatus(ctx, "owner-1", g.ID, "frozen"); err == nil {
		t.Error("SetStatus with unknown status should fail")
	}
}

func TestGoalService_MutationsStampInjectedClock(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g, err := f.goals.Create(ctx, validGoal("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.clock.Advance(48 * time.Hour)
	got, err := f.goals.Contribute(ctx, "owner-1", g.ID, 100_00, "")
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	if !got.UpdatedAt.Equal(f.clock.Now()) {
		t.Errorf("UpdatedAt after contribute = %v, want %v", got.UpdatedAt, f.clock.Now())
	}

	f.clock.Advance(time.Hour)
	got, err = f.goals.SetStatus(ctx, "owner-1", g.ID, core.GoalPaused)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if !got.UpdatedAt.Equal(f.clock.Now()) {
		t.Errorf("UpdatedAt after status change = %v, want %v", got.UpdatedAt, f.clock.Now())
	}
}

func TestGoalService_AddMilestoneDoesNotBackfire(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g, err := f.goals.Create(ctx, validGoal("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.goals.Contribute(ctx, "owner-1", g.ID, 300_00, ""); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	// Milestone below the current balance stays unachieved until the next
	// contribution.
	got, err := f.goals.AddMilestone(ctx, "owner-1", g.ID, core.Milestone{
		Name:         "Early milestone",
		TargetAmount: core.Money{Cents: 200_00},
	})
	if err != nil {
		t.Fatalf("AddMilestone: %v", err)
	}
	if got.Milestones[0].IsAchieved {
		t.Error("milestone achieved on add, want deferred to next contribution")
	}
	if got := len(f.achievements(t, ctx, "owner-1")); got != 0 {
		t.Fatalf("achievement alerts = %d, want 0", got)
	}

	if _, err := f.goals.Contribute(ctx, "owner-1", g.ID, 1_00, ""); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	if got := len(f.achievements(t, ctx, "owner-1")); got != 1 {
		t.Errorf("achievement alerts after contribution = %d, want 1", got)
	}
}

func TestGoalService_Summary(t *testing.T) {
	ctx := context.Background()
	f := newGoalFixture(t)

	g1, err := f.goals.Create(ctx, validGoal("owner-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	draft := validGoal("owner-1")
	draft.Title = "Emergency fund"
	draft.Type = core.GoalEmergencyFund
	draft.TargetAmount = core.Money{Cents: 500_00}
	if _, err := f.goals.Create(ctx, draft); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.goals.Contribute(ctx, "owner-1", g1.ID, 1_000_00, ""); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	sum, err := f.goals.Summary(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.TotalGoals != 2 {
		t.Errorf("TotalGoals = %d, want 2", sum.TotalGoals)
	}
	if sum.Completed != 1 {
		t.Errorf("Completed = %d, want 1", sum.Completed)
	}
	if sum.ActiveGoals != 1 {
		t.Errorf("ActiveGoals = %d, want 1", sum.ActiveGoals)
	}
	if sum.TotalTarget.Cents != 500_00 {
		t.Errorf("TotalTarget = %d, want %d", sum.TotalTarget.Cents, 500_00)
	}
}
