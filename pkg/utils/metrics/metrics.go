package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "waterwatch_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	alertEvents       *prometheus.CounterVec
	reportSubmissions *prometheus.CounterVec
	expiredAlerts     prometheus.Counter
	collaboratorCalls *prometheus.HistogramVec
	httpRequests      *prometheus.HistogramVec
)

// Init registers every collector with the given registerer.
// Calls after the first are no-ops; observing before Init is a no-op.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		alertEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Total alert lifecycle events by event and result",
			},
			[]string{"event", "result"},
		)
		reportSubmissions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_submissions_total",
				Help: "Total water report submissions by result",
			},
			[]string{"result"},
		)
		expiredAlerts = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_expired_total",
				Help: "Total alerts removed from the store after expiry",
			},
		)
		collaboratorCalls = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "collaborator_latency_seconds",
				Help:    "External collaborator call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collaborator", "result"},
		)
		httpRequests = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds by route and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		)

		reg.MustRegister(
			alertEvents,
			reportSubmissions,
			expiredAlerts,
			collaboratorCalls,
			httpRequests,
		)
	})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// IncAlertEvent counts an alert create, vote or comment
func IncAlertEvent(event string, err error) {
	if alertEvents != nil {
		alertEvents.WithLabelValues(event, result(err)).Inc()
	}
}

// IncReportSubmission counts a water report submission
func IncReportSubmission(err error) {
	if reportSubmissions != nil {
		reportSubmissions.WithLabelValues(result(err)).Inc()
	}
}

// AddExpiredAlerts counts reaped alerts
func AddExpiredAlerts(count int) {
	if count <= 0 {
		return
	}
	if expiredAlerts != nil {
		expiredAlerts.Add(float64(count))
	}
}

// ObserveCollaborator records the latency of a call to an external service
func ObserveCollaborator(collaborator string, start time.Time, err error) {
	if collaboratorCalls != nil {
		collaboratorCalls.WithLabelValues(collaborator, result(err)).Observe(time.Since(start).Seconds())
	}
}

// ObserveHTTPRequest records HTTP request latency
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, status).Observe(duration.Seconds())
	}
}
