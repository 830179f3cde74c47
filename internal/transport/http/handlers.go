package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"parktrust/internal/allocation"
	"parktrust/internal/reconcile"
	slotmodels "parktrust/internal/slot/models"
	ticketmodels "parktrust/internal/ticket/models"
)

// Allocator is the entry-side engine surface the transport needs.
type Allocator interface {
	Allocate(ctx context.Context, gateID, plate string) (*allocation.Result, error)
}

// SensorReporter reconciles sensor readings against slot state.
type SensorReporter interface {
	ReportSensor(ctx context.Context, event reconcile.SensorEvent) (*reconcile.Result, error)
}

// TicketLedger is the exit/billing surface of the ledger.
type TicketLedger interface {
	Close(ctx context.Context, ticketID string) (*ticketmodels.Ticket, error)
	Lookup(ctx context.Context, ticketID string) (*ticketmodels.Ticket, error)
}

// SlotReader serves the read-only slot diagnostic.
type SlotReader interface {
	Get(ctx context.Context, slotID string) (*slotmodels.Slot, error)
}

// Handler is the thin HTTP layer over the parking core.
type Handler struct {
	allocator Allocator
	reconcile SensorReporter
	ledger    TicketLedger
	slots     SlotReader
	logger    *slog.Logger
}

func NewHandler(allocator Allocator, rec SensorReporter, ledger TicketLedger, slots SlotReader, logger *slog.Logger) *Handler {
	return &Handler{
		allocator: allocator,
		reconcile: rec,
		ledger:    ledger,
		slots:     slots,
		logger:    logger,
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type vehicleEntryRequest struct {
	Plate  string `json:"plate"`
	GateID string `json:"gate_id"`
}

type vehicleEntryResponse struct {
	TicketID   string `json:"ticket_id"`
	SlotID     string `json:"slot_id"`
	Distance   int    `json:"distance"`
	Directions string `json:"directions"`
}

func (h *Handler) handleVehicleEntry(w http.ResponseWriter, r *http.Request) {
	var req vehicleEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Plate == "" || req.GateID == "" {
		writeErrorCode(w, http.StatusBadRequest, "missing_required_field", "plate and gate_id are required")
		return
	}

	res, err := h.allocator.Allocate(r.Context(), req.GateID, req.Plate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicleEntryResponse{
		TicketID:   res.Ticket.ID,
		SlotID:     res.Slot.ID,
		Distance:   res.Distance,
		Directions: res.Directions,
	})
}

type sensorReportRequest struct {
	SlotID     string     `json:"slot_id"`
	Status     string     `json:"status"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

type sensorReportResponse struct {
	SlotID   string `json:"slot_id"`
	State    string `json:"state"`
	Outcome  string `json:"outcome"`
	TicketID string `json:"ticket_id,omitempty"`
}

func (h *Handler) handleSensorReport(w http.ResponseWriter, r *http.Request) {
	var req sensorReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SlotID == "" {
		writeErrorCode(w, http.StatusBadRequest, "missing_required_field", "slot_id is required")
		return
	}
	status := reconcile.SensorStatus(req.Status)
	if status != reconcile.SensorOccupied && status != reconcile.SensorEmpty {
		writeErrorCode(w, http.StatusBadRequest, "invalid_sensor_status", "status must be occupied or empty")
		return
	}

	observed := time.Now()
	if req.ObservedAt != nil {
		observed = *req.ObservedAt
	}

	res, err := h.reconcile.ReportSensor(r.Context(), reconcile.SensorEvent{
		SlotID:     req.SlotID,
		Status:     status,
		ObservedAt: observed,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sensorReportResponse{
		SlotID:   res.Slot.ID,
		State:    string(res.Slot.State),
		Outcome:  string(res.Outcome),
		TicketID: res.TicketID,
	})
}

type vehicleExitRequest struct {
	TicketID string `json:"ticket_id"`
}

type vehicleExitResponse struct {
	TicketID string    `json:"ticket_id"`
	SlotID   string    `json:"slot_id"`
	Released bool      `json:"released"`
	IssuedAt time.Time `json:"issued_at"`
	ExitedAt time.Time `json:"exited_at"`
}

func (h *Handler) handleVehicleExit(w http.ResponseWriter, r *http.Request) {
	var req vehicleExitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TicketID == "" {
		writeErrorCode(w, http.StatusBadRequest, "missing_required_field", "ticket_id is required")
		return
	}

	t, err := h.ledger.Close(r.Context(), req.TicketID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := vehicleExitResponse{
		TicketID: t.ID,
		SlotID:   t.SlotID,
		Released: true,
		IssuedAt: t.IssuedAt,
	}
	if t.ExitedAt != nil {
		resp.ExitedAt = *t.ExitedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSlotState(w http.ResponseWriter, r *http.Request) {
	slotID := chi.URLParam(r, "slotID")
	sl, err := h.slots.Get(r.Context(), slotID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

func (h *Handler) handleTicketLookup(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	t, err := h.ledger.Lookup(r.Context(), ticketID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request_body", "request body is not valid JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
