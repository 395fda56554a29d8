package observability

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Request outcomes for RecordRequest.
const (
	OutcomeReplied         = "replied"
	OutcomeCancelledBefore = "cancelled_before"
	OutcomeCancelledAfter  = "cancelled_after"
	OutcomeInvalidQuery    = "invalid_query"
	OutcomeBackendError    = "backend_error"
	OutcomeEncodeError     = "encode_error"
)

var (
	registerOnce sync.Once

	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nerve",
			Subsystem: "adapter",
			Name:      "frames_received_total",
			Help:      "Frames decoded from the core stream.",
		},
		[]string{"type"},
	)
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nerve",
			Subsystem: "adapter",
			Name:      "requests_total",
			Help:      "Search queries handled, by outcome.",
		},
		[]string{"outcome"},
	)
	cancels = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nerve",
			Subsystem: "adapter",
			Name:      "cancels_total",
			Help:      "Cancel frames applied to the registry.",
		},
	)
	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nerve",
			Subsystem: "adapter",
			Name:      "search_duration_seconds",
			Help:      "Search backend call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"success"},
	)
	sessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nerve",
			Subsystem: "adapter",
			Name:      "sessions_total",
			Help:      "Core sessions ended, by result.",
		},
		[]string{"result"},
	)
	sessionActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nerve",
			Subsystem: "adapter",
			Name:      "session_active",
			Help:      "1 while a core session is being served.",
		},
	)

	active atomic.Bool
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesReceived, requests, cancels, searchDuration, sessions, sessionActive)
	})
}

func RecordFrame(msgType string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(msgType).Inc()
}

func RecordRequest(outcome string) {
	RegisterMetrics()
	requests.WithLabelValues(outcome).Inc()
}

func RecordCancel() {
	RegisterMetrics()
	cancels.Inc()
}

func RecordSearch(duration time.Duration, success bool) {
	RegisterMetrics()
	searchDuration.WithLabelValues(strconv.FormatBool(success)).Observe(duration.Seconds())
}

func RecordSession(result string) {
	RegisterMetrics()
	sessions.WithLabelValues(result).Inc()
}

// SetSessionActive flips readiness and the session_active gauge.
func SetSessionActive(on bool) {
	RegisterMetrics()
	active.Store(on)
	if on {
		sessionActive.Set(1)
		return
	}
	sessionActive.Set(0)
}

func SessionActive() bool {
	return active.Load()
}

// RequestCount reads the current requests_total value for outcome.
func RequestCount(outcome string) float64 {
	return counterValue(requests.WithLabelValues(outcome))
}

// CancelCount reads the current cancels_total value.
func CancelCount() float64 {
	return counterValue(cancels)
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
