package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"parkslot/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrSlotNotFound), errors.Is(err, models.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSlotUnavailable),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrDuplicateSlot):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidSlot):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAlreadyTerminal):
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError reports err without leaking internal details on 5xx.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
