package services

import (
	"context"
	"time"

	"bilancio/internal/core"
)

// LedgerStore persists ledger entries.
type LedgerStore interface {
	CreateEntry(ctx context.Context, e *core.Entry) error
	GetEntry(ctx context.Context, ownerID, id string) (*core.Entry, error)
	UpdateEntry(ctx context.Context, e *core.Entry) error
	DeleteEntry(ctx context.Context, ownerID, id string) error
	ListEntries(ctx context.Context, ownerID string, f core.EntryFilter) ([]core.Entry, error)
	// SumExpenses totals the absolute cents of expense entries for one
	// category within [from, to] inclusive.
	SumExpenses(ctx context.Context, ownerID, category string, from, to time.Time) (int64, error)
}

// BudgetStore persists budgets.
type BudgetStore interface {
	CreateBudget(ctx context.Context, b *core.Budget) error
	GetBudget(ctx context.Context, ownerID, id string) (*core.Budget, error)
	UpdateBudget(ctx context.Context, b *core.Budget) error
	DeleteBudget(ctx context.Context, ownerID, id string) error
	ListBudgets(ctx context.Context, ownerID string, f core.BudgetFilter) ([]core.Budget, error)
	// FindOverlap returns a budget for the same owner and category whose
	// date range overlaps [start, end], excluding excludeID. Returns
	// core.ErrNotFound when none exists.
	FindOverlap(ctx context.Context, ownerID, category string, start, end time.Time, excludeID string) (*core.Budget, error)
	SetSpent(ctx context.Context, ownerID, id string, cents int64) error
	// ActiveBudgetsCovering returns active budgets for the category whose
	// window covers the given date.
	ActiveBudgetsCovering(ctx context.Context, ownerID, category string, at time.Time) ([]core.Budget, error)
	// ClaimAlertWindow atomically stamps the budget's last-alert time when
	// no alert was sent within the window. Returns true only for the
	// caller that won the claim.
	ClaimAlertWindow(ctx context.Context, ownerID, id string, now time.Time, window time.Duration) (bool, error)
}

// GoalStore persists goals, their milestones and recurring plans.
type GoalStore interface {
	CreateGoal(ctx context.Context, g *core.Goal) error
	GetGoal(ctx context.Context, ownerID, id string) (*core.Goal, error)
	UpdateGoal(ctx context.Context, g *core.Goal) error
	DeleteGoal(ctx context.Context, ownerID, id string) error
	ListGoals(ctx context.Context, ownerID string, f core.GoalFilter) ([]core.Goal, error)
	// AddToCurrentAmount atomically increments the goal balance and
	// returns the updated goal.
	AddToCurrentAmount(ctx context.Context, ownerID, id string, cents int64, at time.Time) (*core.Goal, error)
	// AchieveMilestone latches a milestone to achieved. Returns true only
	// for the caller that flipped it.
	AchieveMilestone(ctx context.Context, ownerID, goalID, milestoneID string, at time.Time) (bool, error)
	// CompleteGoal marks an active goal completed once its balance reached
	// the target. Returns true only for the caller that flipped it.
	CompleteGoal(ctx context.Context, ownerID, id string, at time.Time) (bool, error)
	AddMilestone(ctx context.Context, ownerID, goalID string, m core.Milestone) error
	SetGoalStatus(ctx context.Context, ownerID, id string, status core.GoalStatus, at time.Time) error
	SetNextDue(ctx context.Context, ownerID, id string, next, at time.Time) error
	// ListDueRecurring returns goals across all owners whose recurring
	// contribution is due at or before now.
	ListDueRecurring(ctx context.Context, now time.Time) ([]core.Goal, error)
	// AdvanceNextDue moves the recurring schedule forward only when the
	// stored due time still matches from. Returns true for the winner.
	AdvanceNextDue(ctx context.Context, ownerID, id string, from, to, at time.Time) (bool, error)
}

// NotificationStore persists notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *core.Notification) error
	GetNotification(ctx context.Context, ownerID, id string) (*core.Notification, error)
	ListNotifications(ctx context.Context, ownerID string, f core.NotificationFilter) ([]core.Notification, error)
	MarkRead(ctx context.Context, ownerID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int, error)
	ArchiveNotification(ctx context.Context, ownerID, id string) error
	DeleteNotification(ctx context.Context, ownerID, id string) error
	// UnreadCount counts unread notifications that are neither archived
	// nor expired as of now.
	UnreadCount(ctx context.Context, ownerID string, now time.Time) (int, error)
}

// MutationPublisher emits ledger mutations for downstream consumers.
// Publication is best effort: failures are logged, never surfaced.
type MutationPublisher interface {
	PublishEntryMutation(ctx context.Context, action string, e *core.Entry) error
}

// EntryRecorder records entries produced by other services, bypassing the
// alerting that user-submitted entries trigger.
type EntryRecorder interface {
	RecordEntry(ctx context.Context, e *core.Entry) (*core.Entry, error)
}
