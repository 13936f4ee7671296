package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/core"
)

// AlertWindow is the dedup window for budget threshold alerts: at most one
// alert per budget per rolling window, enforced through persisted state.
const AlertWindow = 24 * time.Hour

const recomputeConcurrency = 4

// BudgetService owns budget CRUD and the spent-aggregate lifecycle. Spent
// is never incrementally patched: every mutation that can affect it
// triggers a full recompute from the ledger, which keeps repeated
// recomputes idempotent.
type BudgetService struct {
	store    BudgetStore
	ledger   LedgerStore
	notifier *NotificationService
	nowFn    func() time.Time
}

func NewBudgetService(store BudgetStore, ledger LedgerStore, notifier *NotificationService) *BudgetService {
	return &BudgetService{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		nowFn:    time.Now,
	}
}

// Create validates the budget, rejects any overlap with an existing budget
// for the same category, and seeds Spent from the ledger.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (*core.Budget, error) {
	if b.Period == "" {
		b.Period = core.Monthly
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, &b, ""); err != nil {
		return nil, err
	}

	now := s.nowFn().UTC()
	b.ID = uuid.NewString()
	b.IsActive = true
	b.Spent = core.Money{}
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := s.store.CreateBudget(ctx, &b); err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}

	if err := s.RecomputeSpent(ctx, b.OwnerID, b.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to seed budget spent",
			"budget_id", b.ID, "error", err)
	}
	return s.store.GetBudget(ctx, b.OwnerID, b.ID)
}

// Update replaces the editable fields. Changing the category or the date
// window re-runs the overlap check against every other budget, then
// recomputes Spent since the matching ledger slice changed.
func (s *BudgetService) Update(ctx context.Context, b core.Budget) (*core.Budget, error) {
	existing, err := s.store.GetBudget(ctx, b.OwnerID, b.ID)
	if err != nil {
		return nil, err
	}

	b.Spent = existing.Spent
	b.IsActive = existing.IsActive
	b.Alerts.LastAlertSentAt = existing.Alerts.LastAlertSentAt
	b.CreatedAt = existing.CreatedAt
	if err := b.Validate(); err != nil {
		return nil, err
	}

	windowChanged := b.Category != existing.Category ||
		!b.StartDate.Equal(existing.StartDate) ||
		!b.EndDate.Equal(existing.EndDate)
	if windowChanged {
		if err := s.checkOverlap(ctx, &b, b.ID); err != nil {
			return nil, err
		}
	}

	b.UpdatedAt = s.nowFn().UTC()
	if err := s.store.UpdateBudget(ctx, &b); err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}

	if err := s.RecomputeSpent(ctx, b.OwnerID, b.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to recompute budget after update",
			"budget_id", b.ID, "error", err)
	}
	return s.store.GetBudget(ctx, b.OwnerID, b.ID)
}

func (s *BudgetService) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteBudget(ctx, ownerID, id)
}

func (s *BudgetService) Get(ctx context.Context, ownerID, id string) (*core.Budget, error) {
	return s.store.GetBudget(ctx, ownerID, id)
}

func (s *BudgetService) List(ctx context.Context, ownerID string, f core.BudgetFilter) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, ownerID, f)
}

// ToggleActive flips the active flag. Inactive budgets keep their Spent but
// are skipped by sweeps and entry-driven recomputes.
func (s *BudgetService) ToggleActive(ctx context.Context, ownerID, id string) (*core.Budget, error) {
	b, err := s.store.GetBudget(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	b.IsActive = !b.IsActive
	b.UpdatedAt = s.nowFn().UTC()
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("toggle budget: %w", err)
	}
	return b, nil
}

// UpdateAlertConfig patches alert settings. Nil fields are left unchanged.
// The dedup timestamp is preserved: re-enabling alerts does not grant a
// free alert inside the window.
func (s *BudgetService) UpdateAlertConfig(ctx context.Context, ownerID, id string, enabled *bool, threshold *float64) (*core.Budget, error) {
	b, err := s.store.GetBudget(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if enabled != nil {
		b.Alerts.Enabled = *enabled
	}
	if threshold != nil {
		if *threshold < 0 || *threshold > 100 {
			return nil, &core.ValidationError{Field: "alerts.threshold", Reason: "must be between 0 and 100"}
		}
		b.Alerts.ThresholdPercent = *threshold
	}
	b.UpdatedAt = s.nowFn().UTC()
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("update alert config: %w", err)
	}
	return b, nil
}

// RecomputeSpent rebuilds the Spent aggregate from the ledger and then
// evaluates the alert threshold against the fresh value.
func (s *BudgetService) RecomputeSpent(ctx context.Context, ownerID, id string) error {
	b, err := s.store.GetBudget(ctx, ownerID, id)
	if err != nil {
		return err
	}

	sum, err := s.ledger.SumExpenses(ctx, b.OwnerID, b.Category, b.StartDate, b.EndDate)
	if err != nil {
		return fmt.Errorf("sum expenses for budget %s: %w", id, err)
	}

	if err := s.store.SetSpent(ctx, b.OwnerID, b.ID, sum); err != nil {
		return fmt.Errorf("set spent for budget %s: %w", id, err)
	}
	b.Spent = core.Money{Cents: sum}

	s.evaluateAlert(ctx, b)
	return nil
}

// RecomputeAll rebuilds every active budget for the owner, a bounded
// number at a time. Used by the recalculate endpoint.
func (s *BudgetService) RecomputeAll(ctx context.Context, ownerID string) (int, error) {
	active := true
	budgets, err := s.store.ListBudgets(ctx, ownerID, core.BudgetFilter{IsActive: &active})
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeConcurrency)
	for _, b := range budgets {
		b := b
		g.Go(func() error {
			return s.RecomputeSpent(gctx, ownerID, b.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(budgets), nil
}

// OnEntryMutation recomputes every active budget whose owner, category and
// window match either the old or the new shape of a mutated entry. Runs
// synchronously on the ledger write path; failures are logged, never
// propagated back to the ledger caller.
func (s *BudgetService) OnEntryMutation(ctx context.Context, before, after *core.Entry) {
	seen := map[string]bool{}
	for _, e := range []*core.Entry{before, after} {
		if e == nil || e.Kind != core.KindExpense {
			continue
		}
		budgets, err := s.store.ActiveBudgetsCovering(ctx, e.OwnerID, e.Category, e.Date)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to find budgets for entry",
				"owner_id", e.OwnerID,
				"category", e.Category,
				"error", err)
			continue
		}
		for _, b := range budgets {
			if seen[b.ID] {
				continue
			}
			seen[b.ID] = true
			if err := s.RecomputeSpent(ctx, b.OwnerID, b.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to recompute budget",
					"budget_id", b.ID, "error", err)
			}
		}
	}
}

func (s *BudgetService) checkOverlap(ctx context.Context, b *core.Budget, excludeID string) error {
	other, err := s.store.FindOverlap(ctx, b.OwnerID, b.Category, b.StartDate, b.EndDate, excludeID)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	return &core.OverlapError{
		BudgetID:  other.ID,
		Name:      other.Name,
		StartDate: other.StartDate,
		EndDate:   other.EndDate,
	}
}

// evaluateAlert raises a threshold alert when the budget crossed its
// configured percentage. The persisted claim makes the alert fire at most
// once per window even under concurrent recomputes.
func (s *BudgetService) evaluateAlert(ctx context.Context, b *core.Budget) {
	if s.notifier == nil || !b.Alerts.Enabled || !b.IsActive {
		return
	}
	pct := b.PercentageSpent()
	if pct < b.Alerts.ThresholdPercent {
		return
	}

	won, err := s.store.ClaimAlertWindow(ctx, b.OwnerID, b.ID, s.nowFn().UTC(), AlertWindow)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to claim alert window",
			"budget_id", b.ID, "error", err)
		return
	}
	if !won {
		return
	}

	priority := core.NotifyMedium
	title := fmt.Sprintf("Budget warning: %s", b.Name)
	if pct >= 100 {
		priority = core.NotifyHigh
		title = fmt.Sprintf("Budget exceeded: %s", b.Name)
	}
	s.notifier.Dispatch(ctx, core.Notification{
		OwnerID: b.OwnerID,
		Type:    core.NotifyBudgetAlert,
		Title:   title,
		Message: fmt.Sprintf("You have spent %s of your %s budget for %s (%.1f%%)",
			b.Spent, b.Amount, b.Name, pct),
		Priority: priority,
		Metadata: map[string]any{
			"budgetId":   b.ID,
			"percentage": pct,
			"status":     string(b.Status()),
		},
	})
}

// BudgetSummary aggregates all budgets for one owner.
type BudgetSummary struct {
	TotalBudgets   int
	ActiveBudgets  int
	TotalAllocated core.Money
	TotalSpent     core.Money
	OverBudget     int
	ByStatus       map[core.BudgetStatus]int
}

// Summary computes portfolio-level stats across the owner's budgets.
func (s *BudgetService) Summary(ctx context.Context, ownerID string) (*BudgetSummary, error) {
	budgets, err := s.store.ListBudgets(ctx, ownerID, core.BudgetFilter{})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	sum := &BudgetSummary{ByStatus: map[core.BudgetStatus]int{}}
	for _, b := range budgets {
		sum.TotalBudgets++
		if !b.IsActive {
			continue
		}
		sum.ActiveBudgets++
		sum.TotalAllocated.Cents += b.Amount.Cents
		sum.TotalSpent.Cents += b.Spent.Cents
		status := b.Status()
		sum.ByStatus[status]++
		if status == core.BudgetExceeded {
			sum.OverBudget++
		}
	}
	return sum, nil
}
