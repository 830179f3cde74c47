package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parktrust/internal/platform/middleware"
)

// NewRouter wires all public endpoints. Handlers stay thin and delegate to
// the domain services; transport concerns remain isolated here.
func NewRouter(h *Handler, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/vehicle-entry", h.handleVehicleEntry)
	r.Post("/sensor-report", h.handleSensorReport)
	r.Post("/vehicle-exit", h.handleVehicleExit)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(adminToken, logger))
		r.Get("/slots/{slotID}", h.handleSlotState)
		r.Get("/tickets/{ticketID}", h.handleTicketLookup)
	})

	return r
}
