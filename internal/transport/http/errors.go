package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"parktrust/internal/allocation"
	slotstore "parktrust/internal/slot/store"
	ticketstore "parktrust/internal/ticket/store"
	"parktrust/pkg/sentinel"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError centralizes domain error translation to HTTP responses so every
// handler returns the same JSON envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, allocation.ErrUnknownGate):
		writeErrorCode(w, http.StatusBadRequest, "unknown_gate", err.Error())
	case errors.Is(err, allocation.ErrLotFull):
		writeErrorCode(w, http.StatusConflict, "lot_full", "no free slot available")
	case errors.Is(err, ticketstore.ErrAlreadyExited):
		writeErrorCode(w, http.StatusConflict, "already_exited", err.Error())
	case errors.Is(err, slotstore.ErrSlotNotFree):
		writeErrorCode(w, http.StatusConflict, "slot_not_free", err.Error())
	case errors.Is(err, slotstore.ErrInvalidTransition):
		writeErrorCode(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, sentinel.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, sentinel.ErrConflict):
		writeErrorCode(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, Code: code})
}
