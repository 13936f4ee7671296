// Package memory is an in-memory data backend. It backs the test suites
// and the DATA_BACKEND=memory mode for local runs without SQLite.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"bilancio/internal/core"
)

// Store keeps everything in mutex-guarded maps. Conditional operations
// (alert claims, milestone latches, schedule advances) run under the same
// lock, which gives the same winner-takes-it semantics as the SQL backend.
type Store struct {
	mu            sync.Mutex
	entries       map[string]core.Entry
	budgets       map[string]core.Budget
	goals         map[string]core.Goal
	notifications map[string]core.Notification
}

func New() *Store {
	return &Store{
		entries:       map[string]core.Entry{},
		budgets:       map[string]core.Budget{},
		goals:         map[string]core.Goal{},
		notifications: map[string]core.Notification{},
	}
}

// --- LedgerStore ---

func (s *Store) CreateEntry(_ context.Context, e *core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = *e
	return nil
}

func (s *Store) GetEntry(_ context.Context, ownerID, id string) (*core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	return &e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e *core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.entries[e.ID]
	if !ok || old.OwnerID != e.OwnerID {
		return core.ErrNotFound
	}
	s.entries[e.ID] = *e
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) ListEntries(_ context.Context, ownerID string, f core.EntryFilter) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Entry
	for _, e := range s.entries {
		if e.OwnerID == ownerID && f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) SumExpenses(_ context.Context, ownerID, category string, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, e := range s.entries {
		if e.OwnerID != ownerID || e.Kind != core.KindExpense || e.Category != category {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		sum += e.Amount.Abs().Cents
	}
	return sum, nil
}

// --- BudgetStore ---

func (s *Store) CreateBudget(_ context.Context, b *core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = cloneBudget(*b)
	return nil
}

func (s *Store) GetBudget(_ context.Context, ownerID, id string) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	out := cloneBudget(b)
	return &out, nil
}

func (s *Store) UpdateBudget(_ context.Context, b *core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.budgets[b.ID]
	if !ok || old.OwnerID != b.OwnerID {
		return core.ErrNotFound
	}
	s.budgets[b.ID] = cloneBudget(*b)
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, ownerID string, f core.BudgetFilter) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID != ownerID {
			continue
		}
		if f.Period != "" && b.Period != f.Period {
			continue
		}
		if f.IsActive != nil && b.IsActive != *f.IsActive {
			continue
		}
		out = append(out, cloneBudget(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindOverlap(_ context.Context, ownerID, category string, start, end time.Time, excludeID string) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.OwnerID != ownerID || b.ID == excludeID || !b.IsActive {
			continue
		}
		if b.Category != category {
			continue
		}
		if b.OverlapsRange(start, end) {
			out := cloneBudget(b)
			return &out, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) SetSpent(_ context.Context, ownerID, id string, cents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.ErrNotFound
	}
	b.Spent = core.Money{Cents: cents}
	s.budgets[id] = b
	return nil
}

func (s *Store) ActiveBudgetsCovering(_ context.Context, ownerID, category string, at time.Time) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID != ownerID || !b.IsActive {
			continue
		}
		if b.Category != category {
			continue
		}
		if b.Covers(at) {
			out = append(out, cloneBudget(b))
		}
	}
	return out, nil
}

func (s *Store) ClaimAlertWindow(_ context.Context, ownerID, id string, now time.Time, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return false, core.ErrNotFound
	}
	if b.Alerts.LastAlertSentAt != nil && b.Alerts.LastAlertSentAt.After(now.Add(-window)) {
		return false, nil
	}
	t := now
	b.Alerts.LastAlertSentAt = &t
	s.budgets[id] = b
	return true, nil
}

// --- GoalStore ---

func (s *Store) CreateGoal(_ context.Context, g *core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.ID] = cloneGoal(*g)
	return nil
}

func (s *Store) GetGoal(_ context.Context, ownerID, id string) (*core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	out := cloneGoal(g)
	return &out, nil
}

func (s *Store) UpdateGoal(_ context.Context, g *core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.goals[g.ID]
	if !ok || old.OwnerID != g.OwnerID {
		return core.ErrNotFound
	}
	s.goals[g.ID] = cloneGoal(*g)
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) ListGoals(_ context.Context, ownerID string, f core.GoalFilter) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.OwnerID != ownerID {
			continue
		}
		if f.Type != "" && g.Type != f.Type {
			continue
		}
		if f.Status != "" && g.Status != f.Status {
			continue
		}
		if f.Priority != "" && g.Priority != f.Priority {
			continue
		}
		out = append(out, cloneGoal(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AddToCurrentAmount(_ context.Context, ownerID, id string, cents int64, at time.Time) (*core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	g.CurrentAmount.Cents += cents
	g.UpdatedAt = at
	s.goals[id] = g
	out := cloneGoal(g)
	return &out, nil
}

func (s *Store) AchieveMilestone(_ context.Context, ownerID, goalID, milestoneID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok || g.OwnerID != ownerID {
		return false, core.ErrNotFound
	}
	for i := range g.Milestones {
		if g.Milestones[i].ID != milestoneID {
			continue
		}
		if g.Milestones[i].IsAchieved {
			return false, nil
		}
		t := at
		g.Milestones[i].IsAchieved = true
		g.Milestones[i].AchievedAt = &t
		s.goals[goalID] = g
		return true, nil
	}
	return false, core.ErrNotFound
}

func (s *Store) CompleteGoal(_ context.Context, ownerID, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return false, core.ErrNotFound
	}
	if g.Status != core.GoalActive || g.CurrentAmount.Cents < g.TargetAmount.Cents {
		return false, nil
	}
	g.Status = core.GoalCompleted
	g.UpdatedAt = at
	s.goals[id] = g
	return true, nil
}

func (s *Store) AddMilestone(_ context.Context, ownerID, goalID string, m core.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok || g.OwnerID != ownerID {
		return core.ErrNotFound
	}
	g = cloneGoal(g)
	g.Milestones = append(g.Milestones, m)
	s.goals[goalID] = g
	return nil
}

func (s *Store) SetGoalStatus(_ context.Context, ownerID, id string, status core.GoalStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return core.ErrNotFound
	}
	g.Status = status
	g.UpdatedAt = at
	s.goals[id] = g
	return nil
}

func (s *Store) SetNextDue(_ context.Context, ownerID, id string, next, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return core.ErrNotFound
	}
	t := next
	g.Recurring.NextDueAt = &t
	g.UpdatedAt = at
	s.goals[id] = g
	return nil
}

func (s *Store) ListDueRecurring(_ context.Context, now time.Time) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.Status != core.GoalActive || g.Recurring.NextDueAt == nil {
			continue
		}
		if g.Recurring.NextDueAt.After(now) {
			continue
		}
		out = append(out, cloneGoal(g))
	}
	return out, nil
}

func (s *Store) AdvanceNextDue(_ context.Context, ownerID, id string, from, to, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return false, core.ErrNotFound
	}
	if g.Recurring.NextDueAt == nil || !g.Recurring.NextDueAt.Equal(from) {
		return false, nil
	}
	t := to
	g.Recurring.NextDueAt = &t
	g.UpdatedAt = at
	s.goals[id] = g
	return true, nil
}

// --- NotificationStore ---

func (s *Store) CreateNotification(_ context.Context, n *core.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = cloneNotification(*n)
	return nil
}

func (s *Store) GetNotification(_ context.Context, ownerID, id string) (*core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	out := cloneNotification(n)
	return &out, nil
}

func (s *Store) ListNotifications(_ context.Context, ownerID string, f core.NotificationFilter) ([]core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Notification
	for _, n := range s.notifications {
		if n.OwnerID != ownerID || n.IsArchived {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		if f.Priority != "" && n.Priority != f.Priority {
			continue
		}
		if f.IsRead != nil && n.IsRead != *f.IsRead {
			continue
		}
		out = append(out, cloneNotification(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkRead(_ context.Context, ownerID, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.OwnerID != ownerID {
		return core.ErrNotFound
	}
	if n.IsRead {
		return nil
	}
	t := at
	n.IsRead = true
	n.ReadAt = &t
	s.notifications[id] = n
	return nil
}

func (s *Store) MarkAllRead(_ context.Context, ownerID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, n := range s.notifications {
		if n.OwnerID != ownerID || n.IsRead || n.IsArchived {
			continue
		}
		t := at
		n.IsRead = true
		n.ReadAt = &t
		s.notifications[id] = n
		count++
	}
	return count, nil
}

func (s *Store) ArchiveNotification(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.OwnerID != ownerID {
		return core.ErrNotFound
	}
	n.IsArchived = true
	s.notifications[id] = n
	return nil
}

func (s *Store) DeleteNotification(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *Store) UnreadCount(_ context.Context, ownerID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.OwnerID != ownerID || n.IsRead || n.IsArchived || n.Expired(now) {
			continue
		}
		count++
	}
	return count, nil
}

// Clones guard against callers mutating shared slices and maps.

func cloneBudget(b core.Budget) core.Budget {
	if b.Alerts.LastAlertSentAt != nil {
		t := *b.Alerts.LastAlertSentAt
		b.Alerts.LastAlertSentAt = &t
	}
	return b
}

func cloneGoal(g core.Goal) core.Goal {
	ms := make([]core.Milestone, len(g.Milestones))
	copy(ms, g.Milestones)
	for i := range ms {
		if ms[i].Deadline != nil {
			t := *ms[i].Deadline
			ms[i].Deadline = &t
		}
		if ms[i].AchievedAt != nil {
			t := *ms[i].AchievedAt
			ms[i].AchievedAt = &t
		}
	}
	g.Milestones = ms
	if g.Recurring.NextDueAt != nil {
		t := *g.Recurring.NextDueAt
		g.Recurring.NextDueAt = &t
	}
	return g
}

func cloneNotification(n core.Notification) core.Notification {
	if n.Metadata != nil {
		md := make(map[string]any, len(n.Metadata))
		for k, v := range n.Metadata {
			md[k] = v
		}
		n.Metadata = md
	}
	if n.ExpiresAt != nil {
		t := *n.ExpiresAt
		n.ExpiresAt = &t
	}
	if n.ReadAt != nil {
		t := *n.ReadAt
		n.ReadAt = &t
	}
	return n
}
