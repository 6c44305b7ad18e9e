// Package metrics registers the prometheus counters and histograms the
// engine exposes on its /metrics endpoint: per-gate rejection counts, broker
// call latency/status, kill-switch activations and orchestrator fan-out
// duration. The reference repo declares prometheus/client_golang as a
// dependency but never wires it — this package is that wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the engine updates during a pipeline/engine
// run. Construct once per process with New and thread the pointer through.
type Metrics struct {
	PipelineRejections  *prometheus.CounterVec
	SignalsGenerated    *prometheus.CounterVec
	RiskRejections      *prometheus.CounterVec
	FilterRejections    *prometheus.CounterVec
	KillSwitchActivations *prometheus.CounterVec
	BrokerCallDuration  *prometheus.HistogramVec
	BrokerCallStatus    *prometheus.CounterVec
	OrchestratorFanoutDuration prometheus.Histogram
	AccountsTraded      prometheus.Counter
	AccountsSkipped     prometheus.Counter
	AccountsFailed      prometheus.Counter
}

// New registers every collector against reg and returns the handle. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for the process-wide one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PipelineRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smc",
			Subsystem: "pipeline",
			Name:      "rejections_total",
			Help:      "Signal pipeline rejections by gate.",
		}, []string{"symbol", "gate"}),

		SignalsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smc",
			Subsystem: "pipeline",
			Name:      "signals_generated_total",
			Help:      "Signals emitted by the pipeline.",
		}, []string{"symbol", "direction"}),

		RiskRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smc",
			Subsystem: "risk",
			Name:      "rejections_total",
			Help:      "Per-account risk-gate rejections.",
		}, []string{"account_id", "reason"}),

		FilterRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smc",
			Subsystem: "execfilter",
			Name:      "rejections_total",
			Help:      "Per-account execution-filter rejections.",
		}, []string{"account_id"}),

		KillSwitchActivations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smc",
			Subsystem: "killswitch",
			Name:      "activations_total",
			Help:      "Kill-switch activation transitions by account.",
		}, []string{"account_id"}),

		BrokerCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smc",
			Subsystem: "broker",
			Name:      "call_duration_seconds",
			Help:      "Broker connector HTTP call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"account_id"}),

		BrokerCallStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smc",
			Subsystem: "broker",
			Name:      "call_status_total",
			Help:      "Broker connector HTTP responses by outcome.",
		}, []string{"account_id", "outcome"}),

		OrchestratorFanoutDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smc",
			Subsystem: "orchestrator",
			Name:      "fanout_duration_seconds",
			Help:      "Wall-clock time to fan a signal out across every eligible account.",
			Buckets:   prometheus.DefBuckets,
		}),

		AccountsTraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smc",
			Subsystem: "orchestrator",
			Name:      "accounts_traded_total",
			Help:      "Accounts that executed a trade for a signal.",
		}),

		AccountsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smc",
			Subsystem: "orchestrator",
			Name:      "accounts_skipped_total",
			Help:      "Accounts skipped for a signal.",
		}),

		AccountsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smc",
			Subsystem: "orchestrator",
			Name:      "accounts_failed_total",
			Help:      "Accounts that failed for a signal.",
		}),
	}
}

// ObserveAggregate records an AggregatedExecutionResult's bucket sizes.
func (m *Metrics) ObserveAggregate(traded, skipped, failed int) {
	m.AccountsTraded.Add(float64(traded))
	m.AccountsSkipped.Add(float64(skipped))
	m.AccountsFailed.Add(float64(failed))
}
