package core

import (
	"strings"
	"time"
)

const (
	BudgetGood     BudgetStatus = "good"
	BudgetWarning  BudgetStatus = "warning"
	BudgetCritical BudgetStatus = "critical"
	BudgetExceeded BudgetStatus = "exceeded"
)

type (
	BudgetStatus string

	// AlertConfig controls threshold alerting for one budget. LastAlertSentAt
	// is the persisted dedup state: an alert fires at most once per rolling
	// 24 hours, surviving restarts.
	AlertConfig struct {
		Enabled          bool
		ThresholdPercent float64
		LastAlertSentAt  *time.Time
	}

	// Budget is a spending cap on one owner+category over a date window.
	// Spent is a cached aggregate derived from the ledger; it is only ever
	// written by a full recompute.
	Budget struct {
		ID          string
		OwnerID     string
		Name        string
		Description string
		Category    string
		Subcategory string
		Amount      Money
		Spent       Money
		Period      Period
		StartDate   time.Time
		EndDate     time.Time
		IsActive    bool
		Alerts      AlertConfig
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// BudgetFilter narrows ListBudgets results.
	BudgetFilter struct {
		Period   Period
		IsActive *bool
	}
)

// Remaining is the unspent part of the cap, floored at zero.
func (b Budget) Remaining() Money {
	r := b.Amount.Cents - b.Spent.Cents
	if r < 0 {
		r = 0
	}
	return Money{Cents: r}
}

// PercentageSpent returns spent as a percentage of the cap, 0 for a zero cap.
func (b Budget) PercentageSpent() float64 {
	if b.Amount.Cents <= 0 {
		return 0
	}
	return float64(b.Spent.Cents) / float64(b.Amount.Cents) * 100
}

// Status buckets the budget by percentage spent:
// exceeded (>=100) > critical (>=90) > warning (>=80) > good.
func (b Budget) Status() BudgetStatus {
	pct := b.PercentageSpent()
	switch {
	case pct >= 100:
		return BudgetExceeded
	case pct >= 90:
		return BudgetCritical
	case pct >= 80:
		return BudgetWarning
	default:
		return BudgetGood
	}
}

// Covers reports whether the date falls inside the budget window, both
// bounds inclusive.
func (b Budget) Covers(date time.Time) bool {
	return !date.Before(b.StartDate) && !date.After(b.EndDate)
}

// OverlapsRange reports whether [start,end] intersects the budget window.
// Touching endpoints count as overlap.
func (b Budget) OverlapsRange(start, end time.Time) bool {
	return !b.StartDate.After(end) && !b.EndDate.Before(start)
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.OwnerID) == "" {
		return &ValidationError{Field: "ownerId", Reason: "required"}
	}
	if strings.TrimSpace(b.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if strings.TrimSpace(b.Category) == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if b.Amount.Cents <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !b.Period.Valid() {
		return &ValidationError{Field: "period", Reason: "must be weekly, monthly, quarterly or yearly"}
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return &ValidationError{Field: "startDate", Reason: "start and end dates required"}
	}
	if !b.StartDate.Before(b.EndDate) {
		return &ValidationError{Field: "endDate", Reason: "must be after start date"}
	}
	if b.Alerts.ThresholdPercent < 0 || b.Alerts.ThresholdPercent > 100 {
		return &ValidationError{Field: "alerts.threshold", Reason: "must be between 0 and 100"}
	}
	return nil
}
