package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// GoalService owns goal accounting. Contributions are the only way a goal
// balance grows; milestone achievement and goal completion are latched
// through conditional store writes so each fires exactly once no matter
// how contributions interleave.
type GoalService struct {
	store    GoalStore
	ledger   EntryRecorder
	notifier *NotificationService
	nowFn    func() time.Time
}

func NewGoalService(store GoalStore, ledger EntryRecorder, notifier *NotificationService) *GoalService {
	return &GoalService{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		nowFn:    time.Now,
	}
}

// Create validates and persists a new goal. A recurring amount on the
// request arms the reminder schedule starting one period from now.
func (s *GoalService) Create(ctx context.Context, g core.Goal) (*core.Goal, error) {
	now := s.nowFn().UTC()
	if g.Priority == "" {
		g.Priority = core.PriorityMedium
	}
	if g.Status == "" {
		g.Status = core.GoalActive
	}
	if g.Recurring.Amount.Cents > 0 && g.Recurring.Frequency == "" {
		g.Recurring.Frequency = core.Monthly
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if !g.TargetDate.After(now) {
		return nil, &core.ValidationError{Field: "targetDate", Reason: "must be in the future"}
	}

	g.ID = uuid.NewString()
	g.CurrentAmount = core.Money{}
	g.StartDate = now
	g.CreatedAt = now
	g.UpdatedAt = now
	for i := range g.Milestones {
		g.Milestones[i].ID = uuid.NewString()
		g.Milestones[i].IsAchieved = false
		g.Milestones[i].AchievedAt = nil
	}
	if g.Recurring.Amount.Cents > 0 {
		next := core.AddPeriod(now, g.Recurring.Frequency)
		g.Recurring.NextDueAt = &next
	} else {
		g.Recurring.NextDueAt = nil
	}

	if err := s.store.CreateGoal(ctx, &g); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &g, nil
}

// Contribute adds a positive amount to an active goal, latches any newly
// reached milestones, completes the goal when the target is reached, and
// mirrors the contribution into the ledger.
func (s *GoalService) Contribute(ctx context.Context, ownerID, goalID string, cents int64, note string) (*core.Goal, error) {
	if cents <= 0 {
		return nil, &core.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	g, err := s.store.GetGoal(ctx, ownerID, goalID)
	if err != nil {
		return nil, err
	}
	if g.Status != core.GoalActive {
		return nil, &core.StateError{Entity: "goal", ID: goalID, State: string(g.Status), Op: "contribute"}
	}

	g, err = s.store.AddToCurrentAmount(ctx, ownerID, goalID, cents, s.nowFn().UTC())
	if err != nil {
		return nil, fmt.Errorf("add contribution: %w", err)
	}

	s.evaluateMilestones(ctx, g)
	s.evaluateCompletion(ctx, g)
	s.recordContribution(ctx, g, cents, note)

	return s.store.GetGoal(ctx, ownerID, goalID)
}

// evaluateMilestones walks unachieved milestones in ascending target order
// and latches every one the balance now covers. The conditional store
// write makes each achievement alert fire once.
func (s *GoalService) evaluateMilestones(ctx context.Context, g *core.Goal) {
	milestones := make([]core.Milestone, len(g.Milestones))
	copy(milestones, g.Milestones)
	sort.Slice(milestones, func(i, j int) bool {
		return milestones[i].TargetAmount.Cents < milestones[j].TargetAmount.Cents
	})

	now := s.nowFn().UTC()
	for _, m := range milestones {
		if m.IsAchieved || m.TargetAmount.Cents > g.CurrentAmount.Cents {
			continue
		}
		won, err := s.store.AchieveMilestone(ctx, g.OwnerID, g.ID, m.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to latch milestone",
				"goal_id", g.ID, "milestone_id", m.ID, "error", err)
			continue
		}
		if !won || s.notifier == nil {
			continue
		}
		s.notifier.Dispatch(ctx, core.Notification{
			OwnerID:  g.OwnerID,
			Type:     core.NotifyAchievement,
			Title:    fmt.Sprintf("Milestone reached: %s", m.Name),
			Message:  fmt.Sprintf("Your goal %q passed the %s milestone (%s saved)", g.Title, m.Name, g.CurrentAmount),
			Priority: core.NotifyMedium,
			Metadata: map[string]any{
				"goalId":      g.ID,
				"milestoneId": m.ID,
			},
		})
	}
}

func (s *GoalService) evaluateCompletion(ctx context.Context, g *core.Goal) {
	if g.CurrentAmount.Cents < g.TargetAmount.Cents {
		return
	}
	won, err := s.store.CompleteGoal(ctx, g.OwnerID, g.ID, s.nowFn().UTC())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to complete goal",
			"goal_id", g.ID, "error", err)
		return
	}
	if !won || s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, core.Notification{
		OwnerID:  g.OwnerID,
		Type:     core.NotifyAchievement,
		Title:    fmt.Sprintf("Goal completed: %s", g.Title),
		Message:  fmt.Sprintf("You reached your %s target of %s. Congratulations!", g.Title, g.TargetAmount),
		Priority: core.NotifyHigh,
		Metadata: map[string]any{"goalId": g.ID},
	})
}

// recordContribution mirrors the contribution into the ledger as a
// negative savings entry. Best effort: the goal balance is already
// updated, a ledger failure must not roll it back.
func (s *GoalService) recordContribution(ctx context.Context, g *core.Goal, cents int64, note string) {
	if s.ledger == nil {
		return
	}
	desc := fmt.Sprintf("Contribution to goal: %s", g.Title)
	if strings.TrimSpace(note) != "" {
		desc += " - " + strings.TrimSpace(note)
	}
	_, err := s.ledger.RecordEntry(ctx, &core.Entry{
		OwnerID:     g.OwnerID,
		Amount:      core.Money{Cents: -cents},
		Kind:        core.KindExpense,
		Category:    core.ContributionCategory,
		Subcategory: core.ContributionSubcategory,
		Date:        s.nowFn().UTC(),
		Description: desc,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to record contribution entry",
			"goal_id", g.ID, "amount_cents", cents, "error", err)
	}
}

// SetupRecurring arms or rearms the reminder schedule. The next due time
// is one frequency period from now.
func (s *GoalService) SetupRecurring(ctx context.Context, ownerID, id string, cents int64, frequency core.Period) (*core.Goal, error) {
	if cents <= 0 {
		return nil, &core.ValidationError{Field: "recurring.amount", Reason: "must be positive"}
	}
	if !frequency.Valid() {
		return nil, &core.ValidationError{Field: "recurring.frequency", Reason: "must be weekly, monthly, quarterly or yearly"}
	}
	g, err := s.store.GetGoal(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	now := s.nowFn().UTC()
	next := core.AddPeriod(now, frequency)
	g.Recurring = core.RecurringContribution{
		Amount:    core.Money{Cents: cents},
		Frequency: frequency,
		NextDueAt: &next,
	}
	g.UpdatedAt = now
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("setup recurring: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, core.Notification{
			OwnerID:   g.OwnerID,
			Type:      core.NotifyGoalReminder,
			Title:     fmt.Sprintf("Recurring contribution set up: %s", g.Title),
			Message:   fmt.Sprintf("A %s contribution of %s to %q is scheduled, next due %s", frequency, g.Recurring.Amount, g.Title, next.Format("2006-01-02")),
			Priority:  core.NotifyLow,
			ExpiresAt: &next,
			Metadata: map[string]any{
				"goalId":      g.ID,
				"amountCents": cents,
			},
		})
	}
	return g, nil
}

// ProcessDueRecurring sweeps all goals with a recurring contribution due
// at or before now. One reminder per goal per due time: the conditional
// schedule advance decides the winner when sweeps overlap. Per-goal
// failures are logged and skipped.
func (s *GoalService) ProcessDueRecurring(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListDueRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due recurring goals: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring contributions",
		"total_due", len(due),
		"processing_time", now.Format(time.RFC3339))

	processed := 0
	for _, g := range due {
		if g.Status != core.GoalActive || g.Recurring.NextDueAt == nil {
			continue
		}
		from := *g.Recurring.NextDueAt
		next := core.AddPeriod(from, g.Recurring.Frequency)

		won, err := s.store.AdvanceNextDue(ctx, g.OwnerID, g.ID, from, next, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to advance recurring schedule",
				"goal_id", g.ID, "error", err)
			continue
		}
		if !won {
			continue
		}

		if s.notifier != nil {
			expires := next
			s.notifier.Dispatch(ctx, core.Notification{
				OwnerID:   g.OwnerID,
				Type:      core.NotifyGoalReminder,
				Title:     fmt.Sprintf("Contribution due: %s", g.Title),
				Message:   fmt.Sprintf("Your %s contribution of %s to %q is due", g.Recurring.Frequency, g.Recurring.Amount, g.Title),
				Priority:  core.NotifyMedium,
				ExpiresAt: &expires,
				Metadata: map[string]any{
					"goalId":      g.ID,
					"amountCents": g.Recurring.Amount.Cents,
				},
			})
		}

		processed++
		slog.InfoContext(ctx, "Recurring reminder sent",
			"goal_id", g.ID,
			"title", g.Title,
			"next_due", next.Format(time.RFC3339))
	}
	return processed, nil
}

// AddMilestone appends a milestone without evaluating it: even a milestone
// below the current balance waits for the next contribution.
func (s *GoalService) AddMilestone(ctx context.Context, ownerID, goalID string, m core.Milestone) (*core.Goal, error) {
	if strings.TrimSpace(m.Name) == "" {
		return nil, &core.ValidationError{Field: "name", Reason: "required"}
	}
	if m.TargetAmount.Cents <= 0 {
		return nil, &core.ValidationError{Field: "targetAmount", Reason: "must be positive"}
	}
	m.ID = uuid.NewString()
	m.IsAchieved = false
	m.AchievedAt = nil

	if err := s.store.AddMilestone(ctx, ownerID, goalID, m); err != nil {
		return nil, err
	}
	return s.store.GetGoal(ctx, ownerID, goalID)
}

// SetStatus moves the goal to any valid lifecycle state.
func (s *GoalService) SetStatus(ctx context.Context, ownerID, id string, status core.GoalStatus) (*core.Goal, error) {
	if !status.Valid() {
		return nil, &core.ValidationError{Field: "status", Reason: "unknown status"}
	}
	if err := s.store.SetGoalStatus(ctx, ownerID, id, status, s.nowFn().UTC()); err != nil {
		return nil, err
	}
	return s.store.GetGoal(ctx, ownerID, id)
}

// Update replaces the editable fields, keeping balance, lifecycle and
// milestone state.
func (s *GoalService) Update(ctx context.Context, g core.Goal) (*core.Goal, error) {
	existing, err := s.store.GetGoal(ctx, g.OwnerID, g.ID)
	if err != nil {
		return nil, err
	}
	g.CurrentAmount = existing.CurrentAmount
	g.Status = existing.Status
	g.StartDate = existing.StartDate
	g.Milestones = existing.Milestones
	g.Recurring = existing.Recurring
	g.CreatedAt = existing.CreatedAt
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.UpdatedAt = s.nowFn().UTC()

	if err := s.store.UpdateGoal(ctx, &g); err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return &g, nil
}

func (s *GoalService) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteGoal(ctx, ownerID, id)
}

func (s *GoalService) Get(ctx context.Context, ownerID, id string) (*core.Goal, error) {
	return s.store.GetGoal(ctx, ownerID, id)
}

func (s *GoalService) List(ctx context.Context, ownerID string, f core.GoalFilter) ([]core.Goal, error) {
	return s.store.ListGoals(ctx, ownerID, f)
}

// GoalSummary aggregates all goals for one owner.
type GoalSummary struct {
	TotalGoals   int
	ActiveGoals  int
	Completed    int
	TotalTarget  core.Money
	TotalSaved   core.Money
	ByPriority   map[core.GoalPriority]int
	ByCompletion map[core.CompletionStatus]int
}

// Summary computes portfolio-level stats across the owner's goals.
func (s *GoalService) Summary(ctx context.Context, ownerID string) (*GoalSummary, error) {
	goals, err := s.store.ListGoals(ctx, ownerID, core.GoalFilter{})
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	now := s.nowFn().UTC()
	sum := &GoalSummary{
		ByPriority:   map[core.GoalPriority]int{},
		ByCompletion: map[core.CompletionStatus]int{},
	}
	for _, g := range goals {
		sum.TotalGoals++
		switch g.Status {
		case core.GoalActive:
			sum.ActiveGoals++
			sum.TotalTarget.Cents += g.TargetAmount.Cents
			sum.TotalSaved.Cents += g.CurrentAmount.Cents
			sum.ByPriority[g.Priority]++
			sum.ByCompletion[g.CompletionStatus(now)]++
		case core.GoalCompleted:
			sum.Completed++
		}
	}
	return sum, nil
}
