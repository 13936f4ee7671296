package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := core.NotificationFilter{
		Type:     core.NotificationType(q.Get("type")),
		Priority: core.NotificationPriority(q.Get("priority")),
	}
	switch q.Get("read") {
	case "true":
		read := true
		filter.IsRead = &read
	case "false":
		read := false
		filter.IsRead = &read
	}
	notifications, err := s.notifs.List(r.Context(), owner, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]notificationView, 0, len(notifications))
	for i := range notifications {
		views = append(views, newNotificationView(&notifications[i]))
	}
	writeSuccess(w, http.StatusOK, views)
}

func (s *Server) handleGetNotification(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.notifs.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, newNotificationView(n))
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.notifs.MarkRead(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, newNotificationView(n))
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := s.notifs.MarkAllRead(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, map[string]int{"markedRead": count})
}

func (s *Server) handleArchiveNotification(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.notifs.Archive(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeSuccess(w, http.StatusOK, newNotificationView(n))
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.notifs.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStats(owner)
	writeMessage(w, http.StatusOK, "notification deleted")
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key := owner + ":unread_count"
	if cached, ok := s.stats.Get(key); ok {
		writeSuccess(w, http.StatusOK, cached)
		return
	}
	count, err := s.notifs.UnreadCount(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payload := map[string]int{"unread": count}
	s.stats.Set(key, payload)
	writeSuccess(w, http.StatusOK, payload)
}
