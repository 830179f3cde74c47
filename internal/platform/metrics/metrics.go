package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the parking core.
type Metrics struct {
	AllocationsTotal        prometheus.Counter
	AllocationFailuresTotal *prometheus.CounterVec
	ReconciliationsTotal    *prometheus.CounterVec
	TicketsClosedTotal      prometheus.Counter
	FreeSlots               prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AllocationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parktrust_allocations_total",
			Help: "Total number of successful slot allocations",
		}),
		AllocationFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "parktrust_allocation_failures_total",
			Help: "Total number of failed allocations by reason",
		}, []string{"reason"}),
		ReconciliationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "parktrust_reconciliations_total",
			Help: "Total number of sensor reconciliations by outcome",
		}, []string{"outcome"}),
		TicketsClosedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parktrust_tickets_closed_total",
			Help: "Total number of tickets closed on vehicle exit",
		}),
		FreeSlots: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "parktrust_free_slots",
			Help: "Current number of free slots",
		}),
	}
}

func (m *Metrics) IncAllocation() {
	if m != nil {
		m.AllocationsTotal.Inc()
	}
}

func (m *Metrics) IncAllocationFailure(reason string) {
	if m != nil {
		m.AllocationFailuresTotal.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncReconciliation(outcome string) {
	if m != nil {
		m.ReconciliationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncTicketClosed() {
	if m != nil {
		m.TicketsClosedTotal.Inc()
	}
}

func (m *Metrics) SetFreeSlots(n int) {
	if m != nil {
		m.FreeSlots.Set(float64(n))
	}
}
