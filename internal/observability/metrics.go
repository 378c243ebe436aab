package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crm_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crm_in_flight",
		Help: "In-flight HTTP requests",
	})
	SegmentRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_segment_recomputes_total",
			Help: "Segment view recomputes by mode",
		}, []string{"mode"},
	)
	TranslationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_translation_failures_total",
			Help: "Unparseable or failed NL translation calls",
		},
	)
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_campaign_messages_total",
			Help: "Campaign messages by delivery status",
		}, []string{"status"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, SegmentRecomputes, TranslationFailures, MessagesSent)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
