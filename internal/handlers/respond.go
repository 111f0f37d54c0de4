package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/errandsexpress/backend/internal/models"
	"github.com/errandsexpress/backend/internal/services"
)

var timeNow = time.Now

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps domain errors onto the API's status codes. Anything outside
// the known taxonomy is a 500 and gets logged.
func writeErr(w http.ResponseWriter, log *slog.Logger, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		writeErrMsg(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden):
		writeErrMsg(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrInvalidStateTransition):
		writeErrMsg(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrAlreadyApplied):
		writeErrMsg(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrNoOutstandingBalance):
		writeErrMsg(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("request failed", "error", err)
		writeErrMsg(w, http.StatusInternalServerError, "internal server error")
	}
}
