package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/AdamBeresnev/championship-draw/internal/logo"
	"github.com/AdamBeresnev/championship-draw/internal/service"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	JSONError(w, http.StatusInternalServerError, "Internal Server Error")
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	JSONError(w, http.StatusBadRequest, msg)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	JSONError(w, http.StatusNotFound, msg)
}

func Conflict(w http.ResponseWriter, err error) {
	slog.Warn("conflict", "error", err)
	JSONError(w, http.StatusConflict, err.Error())
}

// DomainError writes the response for an error returned by the draw services
func DomainError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, draw.ErrNotFound):
		NotFound(w, err.Error(), nil)
	case errors.Is(err, draw.ErrValidation), errors.Is(err, logo.ErrTooLarge):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, draw.ErrLocked),
		errors.Is(err, draw.ErrIllegalTransition),
		errors.Is(err, service.ErrDrawInProgress):
		Conflict(w, err)
	default:
		InternalServerError(w, msg, err)
	}
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func JSONError(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}
