package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigns_api_requests_total", Help: "API requests"},
		[]string{"endpoint", "status"},
	)
	EmailSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sendgrid_send_total", Help: "SendGrid per-recipient send outcomes"},
		[]string{"result", "http_status"},
	)
	EmailVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "kickbox_verify_total", Help: "Kickbox verification outcomes"},
		[]string{"result"},
	)
	WatiSend = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wati_send_total", Help: "WATI template send outcomes"},
		[]string{"result", "http_status"},
	)
	WatiLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "wati_send_latency_seconds", Help: "WATI send latency"},
	)
	DispatchJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigns_dispatch_jobs_total", Help: "Deferred dispatch job outcomes"},
		[]string{"result"},
	)
	Enqueues = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigns_enqueue_total", Help: "SQS enqueue results"},
		[]string{"result"},
	)
	Cancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigns_cancelled_total", Help: "Cancelled WhatsApp campaigns"},
		[]string{"source"},
	)
	SweepCampaigns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigns_sweep_total", Help: "Campaigns handled by the reconciliation sweep"},
		[]string{"result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, EmailSends, EmailVerifications, WatiSend, WatiLatency,
		DispatchJobs, Enqueues, Cancellations, SweepCampaigns)
}
