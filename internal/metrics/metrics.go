package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftlog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "craftlog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentsVerifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftlog_payments_verified_total",
			Help: "Total number of payment verification attempts",
		},
		[]string{"kind", "result"},
	)

	CheckoutsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftlog_checkouts_created_total",
			Help: "Total number of checkout intents created",
		},
		[]string{"kind"},
	)

	CreditsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftlog_credits_consumed_total",
			Help: "Total credits debited from wallets",
		},
		[]string{"pool"},
	)

	ConsumptionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "craftlog_consumption_failures_total",
			Help: "Consumption attempts rejected for insufficient credits",
		},
	)

	RenewalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftlog_subscription_renewals_total",
			Help: "Subscription renewal cycle outcomes",
		},
		[]string{"outcome"},
	)

	RefundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "craftlog_refunds_total",
			Help: "Total number of refunds applied to the ledger",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftlog_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "craftlog_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	ActiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "craftlog_active_subscriptions",
			Help: "Number of active subscriptions",
		},
		[]string{"plan"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPaymentVerification(kind, result string) {
	PaymentsVerifiedTotal.WithLabelValues(kind, result).Inc()
}

func RecordCheckout(kind string) {
	CheckoutsCreatedTotal.WithLabelValues(kind).Inc()
}

func RecordConsumption(pool string, amount int64) {
	CreditsConsumedTotal.WithLabelValues(pool).Add(float64(amount))
}

func RecordConsumptionFailure() {
	ConsumptionFailuresTotal.Inc()
}

func RecordRenewal(outcome string) {
	RenewalsTotal.WithLabelValues(outcome).Inc()
}

func RecordRefund() {
	RefundsTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
