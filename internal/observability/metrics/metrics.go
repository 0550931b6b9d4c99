package metrics

import "github.com/prometheus/client_golang/prometheus"

// QuoteMetrics exposes counters/histograms for the quote intake pipeline.
type QuoteMetrics struct {
	submissionsTotal   *prometheus.CounterVec
	attachmentsTotal   *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	rateLimitedTotal   prometheus.Counter
	submissionDuration *prometheus.HistogramVec
}

func NewQuoteMetrics(reg prometheus.Registerer) *QuoteMetrics {
	m := &QuoteMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site",
			Subsystem: "quotes",
			Name:      "submissions_total",
			Help:      "Quote submissions by outcome",
		}, []string{"outcome"}),
		attachmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site",
			Subsystem: "quotes",
			Name:      "attachments_total",
			Help:      "Quote attachments by processing result",
		}, []string{"result"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site",
			Subsystem: "quotes",
			Name:      "notifications_total",
			Help:      "Staff notification attempts by result",
		}, []string{"result"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site",
			Subsystem: "quotes",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the fixed window limiter",
		}),
		submissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "site",
			Subsystem: "quotes",
			Name:      "submission_duration_seconds",
			Help:      "End to end quote submission latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.attachmentsTotal, m.notificationsTotal, m.rateLimitedTotal, m.submissionDuration)
	return m
}

// ObserveSubmission records the final outcome (success, honeypot,
// rejected, rate_limited, failed) and its latency.
func (m *QuoteMetrics) ObserveSubmission(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
	m.submissionDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *QuoteMetrics) ObserveAttachment(result string) {
	if m == nil {
		return
	}
	m.attachmentsTotal.WithLabelValues(result).Inc()
}

func (m *QuoteMetrics) ObserveNotification(result string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(result).Inc()
}

func (m *QuoteMetrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}
