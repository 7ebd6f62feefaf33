package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crowdfund_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PledgesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_pledges_total",
			Help: "Total number of pledge attempts",
		},
		[]string{"result"},
	)

	PledgedAmountCents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdfund_pledged_amount_cents_total",
			Help: "Total amount pledged in cents",
		},
	)

	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_refunds_total",
			Help: "Total number of pledge refunds during settlement",
		},
		[]string{"result"},
	)

	FundReleasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_fund_releases_total",
			Help: "Total number of campaign fund releases",
		},
		[]string{"status"},
	)

	ReconcileRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdfund_reconcile_runs_total",
			Help: "Total number of reconciliation runs",
		},
	)

	ReconciledPledgesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_reconciled_pledges_total",
			Help: "Pledges handled by reconciliation runs",
		},
		[]string{"result"},
	)

	WalletTopUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdfund_wallet_topups_total",
			Help: "Total number of wallet top-ups",
		},
	)

	InvariantViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_invariant_violations_total",
			Help: "Detected ledger invariant violations, by entity",
		},
		[]string{"entity"},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_notifications_sent_total",
			Help: "Total number of notification emails",
		},
		[]string{"type", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crowdfund_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPledge(result string, amountCents int64) {
	PledgesTotal.WithLabelValues(result).Inc()
	if result == "committed" {
		PledgedAmountCents.Add(float64(amountCents))
	}
}

func RecordRefund(result string) {
	RefundsTotal.WithLabelValues(result).Inc()
}

func RecordFundRelease(status string) {
	FundReleasesTotal.WithLabelValues(status).Inc()
}

func RecordReconcileRun(processed, skipped int) {
	ReconcileRunsTotal.Inc()
	ReconciledPledgesTotal.WithLabelValues("processed").Add(float64(processed))
	ReconciledPledgesTotal.WithLabelValues("skipped").Add(float64(skipped))
}

func RecordInvariantViolation(entity string) {
	InvariantViolationsTotal.WithLabelValues(entity).Inc()
}

func RecordNotification(notifType, status string) {
	NotificationsSentTotal.WithLabelValues(notifType, status).Inc()
}
