package escalator

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "escalator"

// Submission outcomes.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeExhausted  = "exhausted"
	OutcomeSendFailed = "send_failed"
	OutcomeCancelled  = "cancelled"
)

// Metrics are the prometheus collectors of an Escalator. A nil *Metrics
// records nothing.
type Metrics struct {
	sends        *prometheus.CounterVec
	escalations  prometheus.Counter
	submissions  *prometheus.CounterVec
	gasPrice     prometheus.Gauge
	confirmation prometheus.Histogram
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "send_attempts_total",
			Help:      "Transaction broadcast attempts by result.",
		}, []string{"result"}),
		escalations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "escalations_total",
			Help:      "Gas price escalations performed.",
		}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "submissions_total",
			Help:      "Logical transactions by final outcome.",
		}, []string{"outcome"}),
		gasPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "gas_price_wei",
			Help:      "Gas price of the most recent broadcast.",
		}),
		confirmation: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "confirmation_seconds",
			Help:      "Time from the initial broadcast to confirmation.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (m *Metrics) observeSend(result string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(result).Inc()
}

func (m *Metrics) observeEscalation(price *big.Int) {
	if m == nil {
		return
	}
	m.escalations.Inc()
	m.setGasPrice(price)
}

func (m *Metrics) setGasPrice(price *big.Int) {
	if m == nil || price == nil {
		return
	}
	f, _ := new(big.Float).SetInt(price).Float64()
	m.gasPrice.Set(f)
}

// observeOutcome counts a finished submission. elapsed is the time since the
// initial broadcast and is only recorded for confirmations.
func (m *Metrics) observeOutcome(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeConfirmed {
		m.confirmation.Observe(elapsed.Seconds())
	}
}
