package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// EntryMutationMessage announces a ledger change to downstream consumers.
// It carries the full entry: consumers must not need a database to react.
type EntryMutationMessage struct {
	MessageID   string    `json:"messageId"`
	Action      string    `json:"action"` // created, updated, deleted
	EntryID     string    `json:"entryId"`
	OwnerID     string    `json:"ownerId"`
	AmountCents int64     `json:"amountCents"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewEntryMutationMessage(action string, e *core.Entry) *EntryMutationMessage {
	return &EntryMutationMessage{
		MessageID:   uuid.NewString(),
		Action:      action,
		EntryID:     e.ID,
		OwnerID:     e.OwnerID,
		AmountCents: e.Amount.Cents,
		Kind:        string(e.Kind),
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Date:        e.Date,
		Description: e.Description,
		Timestamp:   time.Now().UTC(),
	}
}

func (m *EntryMutationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SuggestedEntryMessage is an externally produced candidate entry, for
// example from a receipt scanner. The ingest worker validates and records
// it through the normal ledger path.
type SuggestedEntryMessage struct {
	MessageID   string    `json:"messageId"`
	OwnerID     string    `json:"ownerId"`
	AmountCents int64     `json:"amountCents"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Source      string    `json:"source,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func SuggestedEntryMessageFromJSON(data []byte) (*SuggestedEntryMessage, error) {
	var msg SuggestedEntryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Entry converts the suggestion into a ledger entry for validation.
func (m *SuggestedEntryMessage) Entry() core.Entry {
	return core.Entry{
		OwnerID:     m.OwnerID,
		Amount:      core.Money{Cents: m.AmountCents},
		Kind:        core.EntryKind(m.Kind),
		Category:    m.Category,
		Subcategory: m.Subcategory,
		Date:        m.Date,
		Description: m.Description,
	}
}
