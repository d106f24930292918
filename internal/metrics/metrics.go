package metrics

import (
	"strconv"
	"sync"

	"salondesk/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salondesk"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time spent serving HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	domainEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events by type.",
		},
		[]string{"type"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		},
		[]string{"result"},
	)

	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Signed-in sessions held by this process.",
	})

	activeToasts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_toasts",
		Help:      "Toasts currently visible across all sessions.",
	})
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, domainEvents, logins, activeSessions, activeToasts)
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(endpoint string, status int, seconds float64) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(endpoint).Observe(seconds)
}

// IncLogin counts a login attempt; result is "success" or "failure".
func IncLogin(result string) {
	logins.WithLabelValues(result).Inc()
}

func IncSessions() { activeSessions.Inc() }

func DecSessions() { activeSessions.Dec() }

// AddToasts moves the global toast gauge by delta.
func AddToasts(delta int) {
	activeToasts.Add(float64(delta))
}

// ToastTracker adapts the per-session toast count into deltas on the global
// gauge. Use one tracker per notifier.
func ToastTracker() func(active int) {
	var (
		mu   sync.Mutex
		last int
	)
	return func(active int) {
		mu.Lock()
		delta := active - last
		last = active
		mu.Unlock()
		AddToasts(delta)
	}
}

// Subscribe counts every event published on bus.
func Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.Wildcard, func(event *events.Event) error {
		domainEvents.WithLabelValues(event.Type).Inc()
		return nil
	})
}
