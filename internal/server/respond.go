package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/store"
)

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return model.Day(time.Now()), nil
	}
	return time.Parse(time.DateOnly, s)
}

// storeError maps store errors onto HTTP status codes.
func storeError(w http.ResponseWriter, op string, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, store.ErrDuplicate):
		jsonError(w, "already exists", http.StatusConflict)
	default:
		slog.Error(op+" failed", "err", err)
		jsonError(w, "database error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, v, http.StatusOK)
}

func jsonStatus(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonStatus(w, map[string]string{"error": msg}, code)
}
