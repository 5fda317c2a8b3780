package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal *prometheus.CounterVec
	votesTotal        *prometheus.CounterVec
	pollsCreated      prometheus.Counter
	wsConnections     prometheus.Gauge
	activeRooms       prometheus.Gauge
	registerOnce      sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepoll",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the poll API.",
		}, []string{"method", "path", "status"})

		votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepoll",
			Name:      "votes_total",
			Help:      "Vote attempts by outcome (accepted, rejected, error).",
		}, []string{"result"})

		pollsCreated = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "livepoll",
			Name:      "polls_created_total",
			Help:      "Total polls created.",
		})

		wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "livepoll",
			Name:      "ws_connections",
			Help:      "Currently open WebSocket connections.",
		})

		activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "livepoll",
			Name:      "active_rooms",
			Help:      "Rooms with at least one live subscription record.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// IncVote increments votes_total with the given result label.
func IncVote(result string) {
	if votesTotal == nil {
		return
	}
	votesTotal.WithLabelValues(result).Inc()
}

// IncPollCreated increments polls_created_total.
func IncPollCreated() {
	if pollsCreated == nil {
		return
	}
	pollsCreated.Inc()
}

// ConnOpened and ConnClosed track the ws_connections gauge.
func ConnOpened() {
	if wsConnections != nil {
		wsConnections.Inc()
	}
}

func ConnClosed() {
	if wsConnections != nil {
		wsConnections.Dec()
	}
}

// SetActiveRooms sets the active_rooms gauge.
func SetActiveRooms(n int) {
	if activeRooms != nil {
		activeRooms.Set(float64(n))
	}
}
