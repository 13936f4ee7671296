package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
)

const defaultAlertThreshold = 80

type budgetAlertsRequest struct {
	Enabled          *bool    `json:"enabled"`
	ThresholdPercent *float64 `json:"thresholdPercent"`
}

type budgetRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Subcategory string               `json:"subcategory"`
	Amount      string               `json:"amount"`
	Period      string               `json:"period"`
	StartDate   string               `json:"startDate"`
	EndDate     string               `json:"endDate"`
	Alerts      *budgetAlertsRequest `json:"alerts"`
}

func (req budgetRequest) toBudget(ownerID string) (core.Budget, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return core.Budget{}, err
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return core.Budget{}, err
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		return core.Budget{}, err
	}
	alerts := core.AlertConfig{Enabled: true, ThresholdPercent: defaultAlertThreshold}
	if req.Alerts != nil {
		if req.Alerts.Enabled != nil {
			alerts.Enabled = *req.Alerts.Enabled
		}
		if req.Alerts.ThresholdPercent != nil {
			alerts.ThresholdPercent = *req.Alerts.ThresholdPercent
		}
	}
	return core.Budget{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Amount:      amount,
		Period:      core.Period(req.Period),
		StartDate:   start,
		EndDate:     end,
		Alerts:      alerts,
	}, nil
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := req.toBudget(owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.budgets.Create(r.Context(), budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusCreated, newBudgetView(created))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := s.budgets.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newBudgetView(budget))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := core.BudgetFilter{Period: core.Period(q.Get("period"))}
	switch q.Get("active") {
	case "true":
		active := true
		filter.IsActive = &active
	case "false":
		active := false
		filter.IsActive = &active
	}
	budgets, err := s.budgets.List(r.Context(), owner, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]budgetView, 0, len(budgets))
	for i := range budgets {
		views = append(views, newBudgetView(&budgets[i]))
	}
	writeSuccess(w, http.StatusOK, views)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := req.toBudget(owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget.ID = chi.URLParam(r, "id")
	updated, err := s.budgets.Update(r.Context(), budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, newBudgetView(updated))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.budgets.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeMessage(w, http.StatusOK, "budget deleted")
}

func (s *Server) handleToggleBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := s.budgets.ToggleActive(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, newBudgetView(budget))
}

func (s *Server) handleUpdateBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetAlertsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := s.budgets.UpdateAlertConfig(r.Context(), owner, chi.URLParam(r, "id"), req.Enabled, req.ThresholdPercent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newBudgetView(budget))
}

func (s *Server) handleRecalculateBudgets(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := s.budgets.RecomputeAll(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, map[string]int{"recomputed": count})
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key := owner + ":budget_summary"
	if cached, ok := s.stats.Get(key); ok {
		writeSuccess(w, http.StatusOK, cached)
		return
	}
	summary, err := s.budgets.Summary(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := newBudgetSummaryView(summary)
	s.stats.Set(key, view)
	writeSuccess(w, http.StatusOK, view)
}
