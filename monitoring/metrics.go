package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	checkoutOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_operations_total",
			Help: "Total checkout operations",
		},
		[]string{"operation", "status"},
	)

	confirmationWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_confirmation_wait_seconds",
			Help:    "Time spent polling for order finalization",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	openOrderSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "open_order_sessions_total",
			Help: "Current number of open order sessions",
		},
	)

	catalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_requests_total",
			Help: "Catalog cache lookups by outcome",
		},
		[]string{"collection", "outcome"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)

	redisUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "redis_up",
			Help: "Whether the Redis connection is healthy",
		},
	)
)

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	// Start metrics collection
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := m.redis.Ping(ctx).Err(); err != nil {
			redisUp.Set(0)
		} else {
			redisUp.Set(1)
		}
		cancel()

		goroutineCount.Set(float64(runtime.NumGoroutine()))
	}
}

// TrackCheckoutOperation records one checkout call and its outcome.
func TrackCheckoutOperation(operation, status string) {
	checkoutOperations.WithLabelValues(operation, status).Inc()
}

// TrackConfirmationWait records how long an order took to finalize.
func TrackConfirmationWait(duration time.Duration) {
	confirmationWait.Observe(duration.Seconds())
}

// TrackOpenSession moves the open-session gauge as orders are opened
// and cleared.
func TrackOpenSession(delta float64) {
	openOrderSessions.Add(delta)
}

// TrackCatalogCache records a catalog cache hit or miss.
func TrackCatalogCache(collection, outcome string) {
	catalogCacheHits.WithLabelValues(collection, outcome).Inc()
}
