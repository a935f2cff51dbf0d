package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)
	OtpIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "otp_issued_total", Help: "OTP codes issued"},
		[]string{"purpose"},
	)
	MailSendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mail_send_total", Help: "Mail send attempts"},
		[]string{"kind", "outcome"},
	)
)

func MustRegister() {
	prometheus.MustRegister(RequestsTotal, ReqDuration, InFlight, OtpIssuedTotal, MailSendTotal)
}
