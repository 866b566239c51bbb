package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fulfillment outcomes recorded by CheckoutMetrics.
const (
	OutcomeCreated           = "created"
	OutcomeDuplicate         = "duplicate"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeFailed            = "failed"
)

// CheckoutMetrics records fulfillment and order lifecycle activity.
type CheckoutMetrics struct {
	fulfillments   *prometheus.CounterVec
	commitDuration prometheus.Histogram
	totalMismatch  prometheus.Counter
	transitions    *prometheus.CounterVec
	unfulfillable  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	fulfillments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_fulfillments_total",
		Help: "Order fulfillment attempts by outcome.",
	}, []string{"outcome"})
	commitDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_commit_duration_seconds",
		Help:    "Duration of the order commit transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	totalMismatch := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_total_mismatch_total",
		Help: "Commits where the processor-reported total differed from the computed total.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_item_transitions_total",
		Help: "Order item status transitions by target status.",
	}, []string{"status"})
	unfulfillable := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_webhook_unfulfillable_total",
		Help: "Paid checkout sessions acknowledged without an order, by reason.",
	}, []string{"reason"})
	reg.MustRegister(fulfillments, commitDuration, totalMismatch, transitions, unfulfillable)
	return &CheckoutMetrics{
		fulfillments:   fulfillments,
		commitDuration: commitDuration,
		totalMismatch:  totalMismatch,
		transitions:    transitions,
		unfulfillable:  unfulfillable,
	}
}

// IncFulfillment increments the counter for the given outcome.
func (m *CheckoutMetrics) IncFulfillment(outcome string) {
	if m == nil || m.fulfillments == nil {
		return
	}
	m.fulfillments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveCommit records how long a commit transaction took.
func (m *CheckoutMetrics) ObserveCommit(duration time.Duration) {
	if m == nil || m.commitDuration == nil {
		return
	}
	m.commitDuration.Observe(duration.Seconds())
}

// IncTotalMismatch counts a disagreement between local and processor totals.
func (m *CheckoutMetrics) IncTotalMismatch() {
	if m == nil || m.totalMismatch == nil {
		return
	}
	m.totalMismatch.Inc()
}

// IncTransition counts an applied order item status change.
func (m *CheckoutMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncUnfulfillable counts a paid session the webhook gave up on.
func (m *CheckoutMetrics) IncUnfulfillable(reason string) {
	if m == nil || m.unfulfillable == nil {
		return
	}
	m.unfulfillable.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
