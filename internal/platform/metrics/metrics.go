// Package metrics holds the Prometheus collectors of the disbursement service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledger"

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	disbursements      *prometheus.CounterVec
	payouts            *prometheus.CounterVec
	providerRequests   *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec
	breakerState       *prometheus.GaugeVec
	ledgerTransactions *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		disbursements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "disbursement",
				Name:      "runs_total",
				Help:      "Disbursement runs by resulting expense status",
			},
			[]string{"mode", "outcome"},
		),
		payouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "disbursement",
				Name:      "beneficiary_payouts_total",
				Help:      "Beneficiary payout attempts by result",
			},
			[]string{"provider", "result"},
		),
		providerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Calls made to payment providers",
			},
			[]string{"provider", "op", "result"},
		),
		providerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "request_duration_seconds",
				Help:      "Duration of payment provider calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "op"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "circuit_breaker_state",
				Help:      "0 closed, 1 half-open, 2 open",
			},
			[]string{"provider"},
		),
		ledgerTransactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "transactions_total",
				Help:      "Ledger postings by result",
			},
			[]string{"result"},
		),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveProviderCall records one provider round trip started at start.
func (m *Metrics) ObserveProviderCall(provider, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, op, result(err)).Inc()
	m.providerLatency.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}

// SetBreakerState exports the breaker state of a provider.
func (m *Metrics) SetBreakerState(provider string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(provider).Set(state)
}

// IncDisbursement counts a finished run.
func (m *Metrics) IncDisbursement(mode, outcome string) {
	if m == nil {
		return
	}
	m.disbursements.WithLabelValues(mode, outcome).Inc()
}

// IncPayout counts one beneficiary result: paid, failed or skipped.
func (m *Metrics) IncPayout(provider, res string) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(provider, res).Inc()
}

// IncLedgerTransaction counts a posting attempt.
func (m *Metrics) IncLedgerTransaction(err error) {
	if m == nil {
		return
	}
	m.ledgerTransactions.WithLabelValues(result(err)).Inc()
}
