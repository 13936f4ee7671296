package core

import (
	"strings"
	"time"
)

const (
	NotifyBudgetAlert      NotificationType = "budget_alert"
	NotifyGoalReminder     NotificationType = "goal_reminder"
	NotifyTransactionAlert NotificationType = "transaction_alert"
	NotifyAchievement      NotificationType = "achievement"
	NotifySystemUpdate     NotificationType = "system_update"
)

const (
	NotifyLow    NotificationPriority = "low"
	NotifyMedium NotificationPriority = "medium"
	NotifyHigh   NotificationPriority = "high"
	NotifyUrgent NotificationPriority = "urgent"
)

type (
	NotificationType     string
	NotificationPriority string

	// Notification is a user-facing alert. Created only by the notification
	// service on behalf of the budget/goal engines or a broadcast; mutated
	// by user read/archive actions.
	Notification struct {
		ID         string
		OwnerID    string
		Type       NotificationType
		Title      string
		Message    string
		Priority   NotificationPriority
		IsRead     bool
		IsArchived bool
		Metadata   map[string]any
		ExpiresAt  *time.Time
		CreatedAt  time.Time
		ReadAt     *time.Time
	}

	// NotificationFilter narrows ListNotifications results.
	NotificationFilter struct {
		Type     NotificationType
		Priority NotificationPriority
		IsRead   *bool
	}
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyBudgetAlert, NotifyGoalReminder, NotifyTransactionAlert,
		NotifyAchievement, NotifySystemUpdate:
		return true
	}
	return false
}

func (p NotificationPriority) Valid() bool {
	switch p {
	case NotifyLow, NotifyMedium, NotifyHigh, NotifyUrgent:
		return true
	}
	return false
}

// Expired reports whether the notification has lapsed. A nil ExpiresAt
// never expires.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

func (n Notification) Validate() error {
	if strings.TrimSpace(n.OwnerID) == "" {
		return &ValidationError{Field: "ownerId", Reason: "required"}
	}
	if !n.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown notification type"}
	}
	if strings.TrimSpace(n.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(n.Message) == "" {
		return &ValidationError{Field: "message", Reason: "required"}
	}
	if !n.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "unknown priority"}
	}
	return nil
}
