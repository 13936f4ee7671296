package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bilancio/internal/core"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

// writeError maps domain errors onto status codes: validation 422,
// conflicts 409, missing 404, everything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *core.ValidationError
		oe *core.OverlapError
		se *core.StateError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, apiError{
			Status:  "error",
			Code:    "validation_error",
			Message: ve.Error(),
			Detail:  map[string]string{"field": ve.Field, "reason": ve.Reason},
		})
	case errors.As(err, &oe):
		writeJSON(w, http.StatusConflict, apiError{
			Status:  "error",
			Code:    "budget_overlap",
			Message: oe.Error(),
			Detail: map[string]string{
				"conflictingBudgetId": oe.BudgetID,
				"name":                oe.Name,
				"startDate":           oe.StartDate.Format("2006-01-02"),
				"endDate":             oe.EndDate.Format("2006-01-02"),
			},
		})
	case errors.As(err, &se):
		writeJSON(w, http.StatusConflict, apiError{
			Status:  "error",
			Code:    "invalid_state",
			Message: se.Error(),
		})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{
			Status:  "error",
			Code:    "not_found",
			Message: "resource not found",
		})
	case errors.Is(err, errNoOwner):
		writeJSON(w, http.StatusUnauthorized, apiError{
			Status:  "error",
			Code:    "unauthorized",
			Message: "owner identity required",
		})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{
			Status:  "error",
			Code:    "internal_error",
			Message: "internal server error",
		})
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &core.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()}
	}
	return nil
}
