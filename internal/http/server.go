package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/cache"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

const (
	statsCacheSize = 512
	statsCacheTTL  = 30 * time.Second
)

// Server owns the HTTP surface. Stats and unread-count responses are cached
// per owner with a short TTL; any write under an owner invalidates that
// owner's cached views.
type Server struct {
	ledger  *services.LedgerService
	budgets *services.BudgetService
	goals   *services.GoalService
	notifs  *services.NotificationService

	auth   Authenticator
	logger *applog.Logger
	stats  *cache.LRUCache[any]
	nowFn  func() time.Time
}

func NewServer(
	ledger *services.LedgerService,
	budgets *services.BudgetService,
	goals *services.GoalService,
	notifs *services.NotificationService,
	auth Authenticator,
	logger *applog.Logger,
) *Server {
	return &Server{
		ledger:  ledger,
		budgets: budgets,
		goals:   goals,
		notifs:  notifs,
		auth:    auth,
		logger:  logger,
		stats:   cache.NewLRUCache[any](statsCacheSize, statsCacheTTL),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusOK, "ok")
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusOK, "ready")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.handleListEntries)
			r.Post("/", s.handleCreateEntry)
			r.Get("/{id}", s.handleGetEntry)
			r.Put("/{id}", s.handleUpdateEntry)
			r.Delete("/{id}", s.handleDeleteEntry)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Post("/", s.handleCreateBudget)
			r.Post("/recalculate", s.handleRecalculateBudgets)
			r.Get("/stats/summary", s.handleBudgetSummary)
			r.Get("/{id}", s.handleGetBudget)
			r.Put("/{id}", s.handleUpdateBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
			r.Post("/{id}/toggle", s.handleToggleBudget)
			r.Patch("/{id}/alerts", s.handleUpdateBudgetAlerts)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", s.handleListGoals)
			r.Post("/", s.handleCreateGoal)
			r.Post("/process-recurring", s.handleProcessRecurring)
			r.Get("/stats/summary", s.handleGoalSummary)
			r.Get("/{id}", s.handleGetGoal)
			r.Put("/{id}", s.handleUpdateGoal)
			r.Delete("/{id}", s.handleDeleteGoal)
			r.Post("/{id}/contribute", s.handleContribute)
			r.Put("/{id}/status", s.handleSetGoalStatus)
			r.Put("/{id}/recurring", s.handleSetupRecurring)
			r.Post("/{id}/milestones", s.handleAddMilestone)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/unread/count", s.handleUnreadCount)
			r.Post("/read-all", s.handleMarkAllRead)
			r.Get("/{id}", s.handleGetNotification)
			r.Post("/{id}/read", s.handleMarkRead)
			r.Post("/{id}/archive", s.handleArchiveNotification)
			r.Delete("/{id}", s.handleDeleteNotification)
		})
	})

	return r
}

func (s *Server) owner(r *http.Request) (string, error) {
	return s.auth.OwnerID(r)
}

func (s *Server) invalidateStats(ownerID string) {
	s.stats.DeletePrefix(ownerID + ":")
}
