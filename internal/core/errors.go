package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound covers both a missing entity and one owned by someone else;
// storage reports the two cases identically so ownership is never leaked.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed or out-of-range input with field detail.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OverlapError is returned when a budget's category and date range would
// intersect an existing active budget. It carries the conflicting budget so
// callers can surface it.
type OverlapError struct {
	BudgetID  string
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("budget %q (%s) already covers %s to %s",
		e.Name, e.BudgetID,
		e.StartDate.Format("2006-01-02"), e.EndDate.Format("2006-01-02"))
}

// StateError reports an operation that is invalid for the entity's current
// state, e.g. contributing to a paused goal.
type StateError struct {
	Entity string
	ID     string
	State  string
	Op     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %q", e.Op, e.Entity, e.ID, e.State)
}
