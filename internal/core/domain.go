package core

import (
	"strings"
	"time"
)

const (
	KindIncome   EntryKind = "income"
	KindExpense  EntryKind = "expense"
	KindTransfer EntryKind = "transfer"
)

const (
	Weekly    Period = "weekly"
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
	Yearly    Period = "yearly"
)

// Category used for ledger entries written on behalf of goal contributions.
const (
	ContributionCategory    = "savings"
	ContributionSubcategory = "goal_contribution"
)

type (
	EntryKind string

	Period string

	// Entry is one signed monetary movement in the ledger.
	Entry struct {
		ID          string
		OwnerID     string
		Amount      Money // signed: goal contributions are recorded negative
		Kind        EntryKind
		Category    string
		Subcategory string
		Date        time.Time
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// EntryFilter narrows ListEntries results. Zero values mean "any".
	EntryFilter struct {
		Kind     EntryKind
		Category string
		From     *time.Time
		To       *time.Time
		Search   string
	}
)

func (k EntryKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

func (p Period) Valid() bool {
	switch p {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return &ValidationError{Field: "ownerId", Reason: "required"}
	}
	if !e.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "must be income, expense or transfer"}
	}
	if e.Amount.Cents == 0 {
		return &ValidationError{Field: "amount", Reason: "must be non-zero"}
	}
	if strings.TrimSpace(e.Category) == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "description", Reason: "required"}
	}
	if len(e.Description) > 200 {
		return &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	if e.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	return nil
}

// Matches reports whether the entry passes the filter.
func (f EntryFilter) Matches(e Entry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.After(*f.To) {
		return false
	}
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Description), s) &&
			!strings.Contains(strings.ToLower(e.Category), s) {
			return false
		}
	}
	return true
}
