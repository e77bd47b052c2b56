package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Services accept
// a nil *Metrics, so wiring them up is optional in tests.
type Metrics struct {
	RequestsCreated     prometheus.Counter
	NotificationsSent   prometheus.Counter
	DonorResponses      *prometheus.CounterVec
	DonationsRecorded   prometheus.Counter
	RequestsCompleted   prometheus.Counter
	DonorsReactivated   prometheus.Counter
	LedgerAppends       prometheus.Counter
	LedgerAppendRetries prometheus.Counter
	RankingDuration     prometheus.Histogram
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifedrop_requests_created_total",
			Help: "Total number of blood requests created",
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifedrop_notifications_sent_total",
			Help: "Total number of donor notifications created",
		}),
		DonorResponses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lifedrop_donor_responses_total",
			Help: "Total number of donor responses by decision",
		}, []string{"decision"}),
		DonationsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifedrop_donations_recorded_total",
			Help: "Total number of confirmed donations",
		}),
		RequestsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifedrop_requests_completed_total",
			Help: "Total number of requests marked completed",
		}),
		DonorsReactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifedrop_donors_reactivated_total",
			Help: "Total number of donors whose cooldown finished during a sweep",
		}),
		LedgerAppends: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifedrop_ledger_appends_total",
			Help: "Total number of blocks appended to the ledger",
		}),
		LedgerAppendRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifedrop_ledger_append_retries_total",
			Help: "Total number of ledger appends retried after losing an index race",
		}),
		RankingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lifedrop_matching_ranking_duration_seconds",
			Help:    "Time spent ranking donors for a request",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncRequestsCreated() {
	if m != nil {
		m.RequestsCreated.Inc()
	}
}

func (m *Metrics) IncNotificationsSent() {
	if m != nil {
		m.NotificationsSent.Inc()
	}
}

func (m *Metrics) IncDonorResponse(decision string) {
	if m != nil {
		m.DonorResponses.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) IncDonationsRecorded() {
	if m != nil {
		m.DonationsRecorded.Inc()
	}
}

func (m *Metrics) IncRequestsCompleted() {
	if m != nil {
		m.RequestsCompleted.Inc()
	}
}

func (m *Metrics) AddDonorsReactivated(n int) {
	if m != nil && n > 0 {
		m.DonorsReactivated.Add(float64(n))
	}
}

func (m *Metrics) IncLedgerAppends() {
	if m != nil {
		m.LedgerAppends.Inc()
	}
}

func (m *Metrics) IncLedgerAppendRetries() {
	if m != nil {
		m.LedgerAppendRetries.Inc()
	}
}

func (m *Metrics) ObserveRankingDuration(seconds float64) {
	if m != nil {
		m.RankingDuration.Observe(seconds)
	}
}
