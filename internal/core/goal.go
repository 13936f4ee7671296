package core

import (
	"strings"
	"time"
)

const (
	GoalSavings       GoalType = "savings"
	GoalDebtPayment   GoalType = "debt_payment"
	GoalInvestment    GoalType = "investment"
	GoalPurchase      GoalType = "purchase"
	GoalEmergencyFund GoalType = "emergency_fund"
	GoalRetirement    GoalType = "retirement"
	GoalEducation     GoalType = "education"
	GoalOther         GoalType = "other"
)

const (
	PriorityLow      GoalPriority = "low"
	PriorityMedium   GoalPriority = "medium"
	PriorityHigh     GoalPriority = "high"
	PriorityCritical GoalPriority = "critical"
)

const (
	GoalActive    GoalStatus = "active"
	GoalPaused    GoalStatus = "paused"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

const (
	ProgressCompleted      CompletionStatus = "completed"
	ProgressOverdue        CompletionStatus = "overdue"
	ProgressAlmostThere    CompletionStatus = "almost_there"
	ProgressOnTrack        CompletionStatus = "on_track"
	ProgressGettingStarted CompletionStatus = "getting_started"
	ProgressJustStarted    CompletionStatus = "just_started"
)

type (
	GoalType     string
	GoalPriority string
	GoalStatus   string

	// CompletionStatus is a derived UI bucket, distinct from the stored
	// lifecycle Status.
	CompletionStatus string

	// Milestone is a sub-target inside a goal. Achievement is latched:
	// IsAchieved/AchievedAt are set once and never cleared.
	Milestone struct {
		ID           string
		Name         string
		TargetAmount Money
		Deadline     *time.Time
		IsAchieved   bool
		AchievedAt   *time.Time
	}

	// RecurringContribution is a reminder-only schedule; nothing is debited
	// automatically. NextDueAt is persisted so the sweep survives restarts.
	RecurringContribution struct {
		Amount    Money
		Frequency Period
		NextDueAt *time.Time
	}

	// Goal is a savings target. CurrentAmount only grows under
	// contributions.
	Goal struct {
		ID            string
		OwnerID       string
		Title         string
		Description   string
		Type          GoalType
		TargetAmount  Money
		CurrentAmount Money
		TargetDate    time.Time
		StartDate     time.Time
		Priority      GoalPriority
		Status        GoalStatus
		Recurring     RecurringContribution
		Milestones    []Milestone
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// GoalFilter narrows ListGoals results.
	GoalFilter struct {
		Type     GoalType
		Status   GoalStatus
		Priority GoalPriority
	}
)

func (t GoalType) Valid() bool {
	switch t {
	case GoalSavings, GoalDebtPayment, GoalInvestment, GoalPurchase,
		GoalEmergencyFund, GoalRetirement, GoalEducation, GoalOther:
		return true
	}
	return false
}

func (p GoalPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalPaused, GoalCompleted, GoalCancelled:
		return true
	}
	return false
}

// ProgressPercentage returns saved amount as a percentage of the target.
func (g Goal) ProgressPercentage() float64 {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	return float64(g.CurrentAmount.Cents) / float64(g.TargetAmount.Cents) * 100
}

// RemainingAmount is the shortfall against the target, floored at zero.
func (g Goal) RemainingAmount() Money {
	r := g.TargetAmount.Cents - g.CurrentAmount.Cents
	if r < 0 {
		r = 0
	}
	return Money{Cents: r}
}

// DaysRemaining is the day count until the target date, rounded up.
// Negative means overdue.
func (g Goal) DaysRemaining(now time.Time) int {
	diff := g.TargetDate.Sub(now)
	days := diff / (24 * time.Hour)
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return int(days)
}

// CompletionStatus buckets progress for presentation, in precedence order:
// completed > overdue > almost_there > on_track > getting_started >
// just_started.
func (g Goal) CompletionStatus(now time.Time) CompletionStatus {
	progress := g.ProgressPercentage()
	switch {
	case progress >= 100:
		return ProgressCompleted
	case g.DaysRemaining(now) < 0:
		return ProgressOverdue
	case progress >= 80:
		return ProgressAlmostThere
	case progress >= 50:
		return ProgressOnTrack
	case progress >= 25:
		return ProgressGettingStarted
	default:
		return ProgressJustStarted
	}
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.OwnerID) == "" {
		return &ValidationError{Field: "ownerId", Reason: "required"}
	}
	if strings.TrimSpace(g.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if !g.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown goal type"}
	}
	if g.TargetAmount.Cents <= 0 {
		return &ValidationError{Field: "targetAmount", Reason: "must be positive"}
	}
	if g.CurrentAmount.Cents < 0 {
		return &ValidationError{Field: "currentAmount", Reason: "must not be negative"}
	}
	if g.TargetDate.IsZero() {
		return &ValidationError{Field: "targetDate", Reason: "required"}
	}
	if !g.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "unknown priority"}
	}
	if !g.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown status"}
	}
	if g.Recurring.Amount.Cents > 0 && !g.Recurring.Frequency.Valid() {
		return &ValidationError{Field: "recurring.frequency", Reason: "must be weekly, monthly, quarterly or yearly"}
	}
	return nil
}
