package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics tracks reconciliation and adjustment activity.
type BillingMetrics struct {
	invoicesReconciled *prometheus.CounterVec
	adjustmentsApplied *prometheus.CounterVec
	adjustmentCents    *prometheus.CounterVec
	assistantRequests  *prometheus.CounterVec
	rateLimitDecisions *prometheus.CounterVec
}

// NewBillingMetrics registers billing instruments on the default registry.
func NewBillingMetrics() *BillingMetrics {
	return &BillingMetrics{
		invoicesReconciled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Subsystem: "billing",
			Name:      "invoices_reconciled_total",
			Help:      "Count of invoice reconciliations by outcome.",
		}, []string{"outcome"}),
		adjustmentsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Subsystem: "billing",
			Name:      "adjustments_applied_total",
			Help:      "Count of write-off and write-on adjustments by direction.",
		}, []string{"direction", "reason_code"}),
		adjustmentCents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Subsystem: "billing",
			Name:      "adjustment_cents_total",
			Help:      "Absolute adjusted amount in cents by direction.",
		}, []string{"direction"}),
		assistantRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Subsystem: "assistant",
			Name:      "chat_requests_total",
			Help:      "Count of assistant chat requests by model and outcome.",
		}, []string{"model", "outcome"}),
		rateLimitDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter verdicts by scope.",
		}, []string{"scope", "decision"}),
	}
}

func (m *BillingMetrics) RecordReconciliation(outcome string) {
	m.invoicesReconciled.WithLabelValues(outcome).Inc()
}

func (m *BillingMetrics) RecordAdjustment(direction, reasonCode string, cents int64) {
	m.adjustmentsApplied.WithLabelValues(direction, reasonCode).Inc()
	if cents < 0 {
		cents = -cents
	}
	m.adjustmentCents.WithLabelValues(direction).Add(float64(cents))
}

func (m *BillingMetrics) RecordAssistantRequest(model, outcome string) {
	m.assistantRequests.WithLabelValues(model, outcome).Inc()
}

func (m *BillingMetrics) RecordRateLimit(scope string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	m.rateLimitDecisions.WithLabelValues(scope, decision).Inc()
}
