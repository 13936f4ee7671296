package worker

import (
	"context"
	"log/slog"
	"time"

	"bilancio/internal/services"
)

// RecurringSweeper periodically advances due recurring contribution
// schedules and dispatches their reminders. Each due schedule is claimed
// with a conditional write, so running several sweepers at once is safe.
type RecurringSweeper struct {
	goals    *services.GoalService
	interval time.Duration
}

func NewRecurringSweeper(goals *services.GoalService, interval time.Duration) *RecurringSweeper {
	return &RecurringSweeper{goals: goals, interval: interval}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled.
func (w *RecurringSweeper) Run(ctx context.Context) error {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RecurringSweeper) sweep(ctx context.Context) {
	now := time.Now().UTC()
	count, err := w.goals.ProcessDueRecurring(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "Recurring sweep failed", "error", err)
		return
	}
	if count > 0 {
		slog.InfoContext(ctx, "Recurring sweep complete",
			"reminders_sent", count,
			"next_check", now.Add(w.interval).Format("15:04:05"))
	}
}
