package amqp

import (
	"testing"
	"time"

	"bilancio/internal/core"
)

func TestNewEntryMutationMessage(t *testing.T) {
	e := &core.Entry{
		ID:          "entry-1",
		OwnerID:     "owner-1",
		Amount:      core.Money{Cents: -150_00},
		Kind:        core.KindExpense,
		Category:    "savings",
		Subcategory: "goal_contribution",
		Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: "Contribution to goal: Vacation fund",
	}

	msg := NewEntryMutationMessage("created", e)

	if msg.MessageID == "" {
		t.Error("MessageID not assigned")
	}
	if msg.Action != "created" {
		t.Errorf("Action = %q, want created", msg.Action)
	}
	if msg.EntryID != e.ID || msg.OwnerID != e.OwnerID {
		t.Errorf("ids = %s/%s, want %s/%s", msg.EntryID, msg.OwnerID, e.ID, e.OwnerID)
	}
	if msg.AmountCents != -150_00 {
		t.Errorf("AmountCents = %d, want %d", msg.AmountCents, -150_00)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp not stamped")
	}
}

func TestSuggestedEntryMessage_Entry(t *testing.T) {
	payload := []byte(`{
		"messageId": "msg-1",
		"ownerId": "owner-1",
		"amountCents": 2350,
		"kind": "expense",
		"category": "food",
		"date": "2024-03-08T00:00:00Z",
		"description": "Lunch receipt",
		"source": "receipt-scanner"
	}`)

	msg, err := SuggestedEntryMessageFromJSON(payload)
	if err != nil {
		t.Fatalf("SuggestedEntryMessageFromJSON: %v", err)
	}

	e := msg.Entry()
	if err := e.Validate(); err != nil {
		t.Fatalf("converted entry invalid: %v", err)
	}
	if e.Amount.Cents != 2350 {
		t.Errorf("Amount = %d, want 2350", e.Amount.Cents)
	}
	if e.Kind != core.KindExpense {
		t.Errorf("Kind = %v, want %v", e.Kind, core.KindExpense)
	}
	if e.ID != "" {
		t.Error("converted entry must not carry an id; the ledger assigns one")
	}
}

func TestSuggestedEntryMessageFromJSON_Malformed(t *testing.T) {
	if _, err := SuggestedEntryMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("malformed payload should fail to parse")
	}
}
