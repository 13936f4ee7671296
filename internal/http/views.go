package http

import (
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// JSON views. Amounts are exposed both as integer cents and as a formatted
// decimal string; derived fields (status, progress) are computed at render
// time so they never go stale.

type entryView struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amountCents"`
	Amount      string    `json:"amount"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newEntryView(e *core.Entry) entryView {
	return entryView{
		ID:          e.ID,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.String(),
		Kind:        string(e.Kind),
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Date:        e.Date,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type alertConfigView struct {
	Enabled          bool       `json:"enabled"`
	ThresholdPercent float64    `json:"thresholdPercent"`
	LastAlertSentAt  *time.Time `json:"lastAlertSentAt,omitempty"`
}

type budgetView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Category        string          `json:"category"`
	Subcategory     string          `json:"subcategory,omitempty"`
	AmountCents     int64           `json:"amountCents"`
	SpentCents      int64           `json:"spentCents"`
	RemainingCents  int64           `json:"remainingCents"`
	PercentageSpent float64         `json:"percentageSpent"`
	Status          string          `json:"status"`
	Period          string          `json:"period"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	IsActive        bool            `json:"isActive"`
	Alerts          alertConfigView `json:"alerts"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func newBudgetView(b *core.Budget) budgetView {
	return budgetView{
		ID:              b.ID,
		Name:            b.Name,
		Description:     b.Description,
		Category:        b.Category,
		Subcategory:     b.Subcategory,
		AmountCents:     b.Amount.Cents,
		SpentCents:      b.Spent.Cents,
		RemainingCents:  b.Remaining().Cents,
		PercentageSpent: b.PercentageSpent(),
		Status:          string(b.Status()),
		Period:          string(b.Period),
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		IsActive:        b.IsActive,
		Alerts: alertConfigView{
			Enabled:          b.Alerts.Enabled,
			ThresholdPercent: b.Alerts.ThresholdPercent,
			LastAlertSentAt:  b.Alerts.LastAlertSentAt,
		},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type milestoneView struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	TargetAmountCents int64      `json:"targetAmountCents"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	IsAchieved        bool       `json:"isAchieved"`
	AchievedAt        *time.Time `json:"achievedAt,omitempty"`
}

type recurringView struct {
	AmountCents int64      `json:"amountCents"`
	Frequency   string     `json:"frequency,omitempty"`
	NextDueAt   *time.Time `json:"nextDueAt,omitempty"`
}

type goalView struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	Type               string          `json:"type"`
	TargetAmountCents  int64           `json:"targetAmountCents"`
	CurrentAmountCents int64           `json:"currentAmountCents"`
	RemainingCents     int64           `json:"remainingCents"`
	ProgressPercentage float64         `json:"progressPercentage"`
	DaysRemaining      int             `json:"daysRemaining"`
	CompletionStatus   string          `json:"completionStatus"`
	TargetDate         time.Time       `json:"targetDate"`
	StartDate          time.Time       `json:"startDate"`
	Priority           string          `json:"priority"`
	Status             string          `json:"status"`
	Recurring          recurringView   `json:"recurring"`
	Milestones         []milestoneView `json:"milestones"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func newGoalView(g *core.Goal, now time.Time) goalView {
	milestones := make([]milestoneView, 0, len(g.Milestones))
	for _, m := range g.Milestones {
		milestones = append(milestones, milestoneView{
			ID:                m.ID,
			Name:              m.Name,
			TargetAmountCents: m.TargetAmount.Cents,
			Deadline:          m.Deadline,
			IsAchieved:        m.IsAchieved,
			AchievedAt:        m.AchievedAt,
		})
	}
	return goalView{
		ID:                 g.ID,
		Title:              g.Title,
		Description:        g.Description,
		Type:               string(g.Type),
		TargetAmountCents:  g.TargetAmount.Cents,
		CurrentAmountCents: g.CurrentAmount.Cents,
		RemainingCents:     g.RemainingAmount().Cents,
		ProgressPercentage: g.ProgressPercentage(),
		DaysRemaining:      g.DaysRemaining(now),
		CompletionStatus:   string(g.CompletionStatus(now)),
		TargetDate:         g.TargetDate,
		StartDate:          g.StartDate,
		Priority:           string(g.Priority),
		Status:             string(g.Status),
		Recurring: recurringView{
			AmountCents: g.Recurring.Amount.Cents,
			Frequency:   string(g.Recurring.Frequency),
			NextDueAt:   g.Recurring.NextDueAt,
		},
		Milestones: milestones,
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
}

type notificationView struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Priority   string         `json:"priority"`
	IsRead     bool           `json:"isRead"`
	IsArchived bool           `json:"isArchived"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ExpiresAt  *time.Time     `json:"expiresAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	ReadAt     *time.Time     `json:"readAt,omitempty"`
}

func newNotificationView(n *core.Notification) notificationView {
	return notificationView{
		ID:         n.ID,
		Type:       string(n.Type),
		Title:      n.Title,
		Message:    n.Message,
		Priority:   string(n.Priority),
		IsRead:     n.IsRead,
		IsArchived: n.IsArchived,
		Metadata:   n.Metadata,
		ExpiresAt:  n.ExpiresAt,
		CreatedAt:  n.CreatedAt,
		ReadAt:     n.ReadAt,
	}
}

type budgetSummaryView struct {
	TotalBudgets        int            `json:"totalBudgets"`
	ActiveBudgets       int            `json:"activeBudgets"`
	TotalAllocatedCents int64          `json:"totalAllocatedCents"`
	TotalSpentCents     int64          `json:"totalSpentCents"`
	OverBudget          int            `json:"overBudget"`
	ByStatus            map[string]int `json:"byStatus"`
}

func newBudgetSummaryView(s *services.BudgetSummary) budgetSummaryView {
	byStatus := make(map[string]int, len(s.ByStatus))
	for k, v := range s.ByStatus {
		byStatus[string(k)] = v
	}
	return budgetSummaryView{
		TotalBudgets:        s.TotalBudgets,
		ActiveBudgets:       s.ActiveBudgets,
		TotalAllocatedCents: s.TotalAllocated.Cents,
		TotalSpentCents:     s.TotalSpent.Cents,
		OverBudget:          s.OverBudget,
		ByStatus:            byStatus,
	}
}

type goalSummaryView struct {
	TotalGoals       int            `json:"totalGoals"`
	ActiveGoals      int            `json:"activeGoals"`
	Completed        int            `json:"completed"`
	TotalTargetCents int64          `json:"totalTargetCents"`
	TotalSavedCents  int64          `json:"totalSavedCents"`
	ByPriority       map[string]int `json:"byPriority"`
	ByCompletion     map[string]int `json:"byCompletion"`
}

func newGoalSummaryView(s *services.GoalSummary) goalSummaryView {
	byPriority := make(map[string]int, len(s.ByPriority))
	for k, v := range s.ByPriority {
		byPriority[string(k)] = v
	}
	byCompletion := make(map[string]int, len(s.ByCompletion))
	for k, v := range s.ByCompletion {
		byCompletion[string(k)] = v
	}
	return goalSummaryView{
		TotalGoals:       s.TotalGoals,
		ActiveGoals:      s.ActiveGoals,
		Completed:        s.Completed,
		TotalTargetCents: s.TotalTarget.Cents,
		TotalSavedCents:  s.TotalSaved.Cents,
		ByPriority:       byPriority,
		ByCompletion:     byCompletion,
	}
}
