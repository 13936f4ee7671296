package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
)

type entryRequest struct {
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

func (req entryRequest) toEntry(ownerID string) (core.Entry, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return core.Entry{}, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{
		OwnerID:     ownerID,
		Amount:      amount,
		Kind:        core.EntryKind(req.Kind),
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Date:        date,
		Description: req.Description,
	}, nil
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req entryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := req.toEntry(owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.ledger.CreateEntry(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusCreated, newEntryView(created))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.ledger.GetEntry(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newEntryView(entry))
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	from, err := parseOptionalDate("from", q.Get("from"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseOptionalDate("to", q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := core.EntryFilter{
		Kind:     core.EntryKind(q.Get("kind")),
		Category: q.Get("category"),
		From:     from,
		To:       to,
		Search:   q.Get("search"),
	}
	entries, err := s.ledger.ListEntries(r.Context(), owner, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]entryView, 0, len(entries))
	for i := range entries {
		views = append(views, newEntryView(&entries[i]))
	}
	writeSuccess(w, http.StatusOK, views)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req entryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := req.toEntry(owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry.ID = chi.URLParam(r, "id")
	updated, err := s.ledger.UpdateEntry(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, newEntryView(updated))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteEntry(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeMessage(w, http.StatusOK, "entry deleted")
}
