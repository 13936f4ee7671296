package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
)

type milestoneRequest struct {
	Name         string `json:"name"`
	TargetAmount string `json:"targetAmount"`
	Deadline     string `json:"deadline"`
}

func (req milestoneRequest) toMilestone() (core.Milestone, error) {
	amount, err := parseAmount("targetAmount", req.TargetAmount)
	if err != nil {
		return core.Milestone{}, err
	}
	deadline, err := parseOptionalDate("deadline", req.Deadline)
	if err != nil {
		return core.Milestone{}, err
	}
	return core.Milestone{
		Name:         req.Name,
		TargetAmount: amount,
		Deadline:     deadline,
	}, nil
}

type recurringRequest struct {
	Amount    string `json:"amount"`
	Frequency string `json:"frequency"`
}

type goalRequest struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Type         string             `json:"type"`
	TargetAmount string             `json:"targetAmount"`
	TargetDate   string             `json:"targetDate"`
	Priority     string             `json:"priority"`
	Milestones   []milestoneRequest `json:"milestones"`
	Recurring    *recurringRequest  `json:"recurring"`
}

func (req goalRequest) toGoal(ownerID string) (core.Goal, error) {
	amount, err := parseAmount("targetAmount", req.TargetAmount)
	if err != nil {
		return core.Goal{}, err
	}
	targetDate, err := parseDate("targetDate", req.TargetDate)
	if err != nil {
		return core.Goal{}, err
	}
	g := core.Goal{
		OwnerID:      ownerID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         core.GoalType(req.Type),
		TargetAmount: amount,
		TargetDate:   targetDate,
		Priority:     core.GoalPriority(req.Priority),
	}
	for _, m := range req.Milestones {
		milestone, err := m.toMilestone()
		if err != nil {
			return core.Goal{}, err
		}
		g.Milestones = append(g.Milestones, milestone)
	}
	if req.Recurring != nil {
		recurring, err := parseAmount("recurring.amount", req.Recurring.Amount)
		if err != nil {
			return core.Goal{}, err
		}
		g.Recurring = core.RecurringContribution{
			Amount:    recurring,
			Frequency: core.Period(req.Recurring.Frequency),
		}
	}
	return g, nil
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req goalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := req.toGoal(owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.goals.Create(r.Context(), goal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusCreated, newGoalView(created, s.nowFn()))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.goals.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newGoalView(goal, s.nowFn()))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := core.GoalFilter{
		Type:     core.GoalType(q.Get("type")),
		Status:   core.GoalStatus(q.Get("status")),
		Priority: core.GoalPriority(q.Get("priority")),
	}
	goals, err := s.goals.List(r.Context(), owner, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := s.nowFn()
	views := make([]goalView, 0, len(goals))
	for i := range goals {
		views = append(views, newGoalView(&goals[i], now))
	}
	writeSuccess(w, http.StatusOK, views)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req goalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := req.toGoal(owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal.ID = chi.URLParam(r, "id")
	updated, err := s.goals.Update(r.Context(), goal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, newGoalView(updated, s.nowFn()))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.goals.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeMessage(w, http.StatusOK, "goal deleted")
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Amount string `json:"amount"`
		Note   string `json:"note"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.goals.Contribute(r.Context(), owner, chi.URLParam(r, "id"), amount.Cents, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, newGoalView(goal, s.nowFn()))
}

func (s *Server) handleSetGoalStatus(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.goals.SetStatus(r.Context(), owner, chi.URLParam(r, "id"), core.GoalStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, newGoalView(goal, s.nowFn()))
}

func (s *Server) handleSetupRecurring(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req recurringRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.goals.SetupRecurring(r.Context(), owner, chi.URLParam(r, "id"), amount.Cents, core.Period(req.Frequency))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newGoalView(goal, s.nowFn()))
}

func (s *Server) handleAddMilestone(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req milestoneRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	milestone, err := req.toMilestone()
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.goals.AddMilestone(r.Context(), owner, chi.URLParam(r, "id"), milestone)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newGoalView(goal, s.nowFn()))
}

func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	if _, err := s.owner(r); err != nil {
		writeError(w, r, err)
		return
	}
	count, err := s.goals.ProcessDueRecurring(r.Context(), s.nowFn())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int{"processed": count})
}

func (s *Server) handleGoalSummary(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key := owner + ":goal_summary"
	if cached, ok := s.stats.Get(key); ok {
		writeSuccess(w, http.StatusOK, cached)
		return
	}
	summary, err := s.goals.Summary(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := newGoalSummaryView(summary)
	s.stats.Set(key, view)
	writeSuccess(w, http.StatusOK, view)
}
