package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/services"
)

// IngestWorker turns suggested-entry messages from the queue into ledger
// entries. Returning an error from the handler requeues the message;
// validation failures are dropped instead, a retry cannot fix them.
type IngestWorker struct {
	ledger *services.LedgerService
}

func NewIngestWorker(ledger *services.LedgerService) *IngestWorker {
	return &IngestWorker{ledger: ledger}
}

// HandleSuggestedEntry processes one message from the suggested-entries
// queue.
func (w *IngestWorker) HandleSuggestedEntry(ctx context.Context, msg *amqp.SuggestedEntryMessage) error {
	slog.InfoContext(ctx, "Processing suggested entry",
		"message_id", msg.MessageID,
		"owner_id", msg.OwnerID,
		"source", msg.Source)

	entry := msg.Entry()
	created, err := w.ledger.CreateEntry(ctx, entry)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			slog.WarnContext(ctx, "Dropping invalid suggested entry",
				"message_id", msg.MessageID,
				"field", verr.Field,
				"reason", verr.Reason)
			return nil
		}
		return fmt.Errorf("create entry from suggestion: %w", err)
	}

	slog.InfoContext(ctx, "Suggested entry recorded",
		"message_id", msg.MessageID,
		"entry_id", created.ID)
	return nil
}
