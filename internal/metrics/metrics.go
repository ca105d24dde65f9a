// Package metrics provides Prometheus instrumentation for the seller risk service.
package metrics

import (
	"database/sql"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sellerrisk"

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// PredictionsTotal counts scored orders by risk label and whether a
	// seller model was available ("available", "missing").
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total single-order predictions by risk label and model availability.",
		},
		[]string{"label", "model"},
	)

	// PredictionDuration observes single-order scoring latency.
	PredictionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_duration_seconds",
		Help:      "Time to load a seller model and score one order in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// PredictionsLoggedTotal counts rows appended to the prediction log.
	PredictionsLoggedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_logged_total",
		Help:      "Total prediction rows appended to the prediction log.",
	})

	// TrainingsTotal counts per-seller training attempts by outcome.
	TrainingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trainings_total",
			Help:      "Per-seller training attempts by outcome (trained, skipped, failed).",
		},
		[]string{"outcome"},
	)

	// TrainingDuration observes the time to fit and persist one seller model.
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "training_duration_seconds",
		Help:      "Time to train and persist one seller model in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// ModelF1 reports the held-out F1 of each seller's latest model.
	ModelF1 = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_f1",
			Help:      "Held-out F1 score of the most recently trained model per seller.",
		},
		[]string{"seller_id"},
	)

	// AggregationDuration observes analytics computations by operation.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Time spent loading tables and aggregating, by operation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	// DatasetRows reports the row count of each table at its last load.
	DatasetRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows in each table as of the most recent load.",
		},
		[]string{"table"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by route.",
		},
		[]string{"route"},
	)

	// GoroutineCount reports the current number of goroutines at scrape time.
	GoroutineCount = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Name: "goroutines",
		Help: "Current number of goroutines.",
	}, func() float64 { return float64(runtime.NumGoroutine()) })
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PredictionsTotal,
		PredictionDuration,
		PredictionsLoggedTotal,
		TrainingsTotal,
		TrainingDuration,
		ModelF1,
		AggregationDuration,
		DatasetRows,
		RateLimitedTotal,
		GoroutineCount,
	)
}

// ObserveAggregation starts a timer for operation; call the returned func
// when the work is done.
func ObserveAggregation(operation string) func() {
	timer := prometheus.NewTimer(AggregationDuration.WithLabelValues(operation))
	return func() { timer.ObserveDuration() }
}

// RegisterDBStats exposes sql.DBStats as gauges sampled at scrape time, so
// no collector goroutine is needed.
func RegisterDBStats(reg prometheus.Registerer, db *sql.DB) error {
	gauges := []struct {
		name, help string
		value      func(sql.DBStats) float64
	}{
		{"db_open_connections", "Number of open database connections.",
			func(s sql.DBStats) float64 { return float64(s.OpenConnections) }},
		{"db_idle_connections", "Number of idle database connections.",
			func(s sql.DBStats) float64 { return float64(s.Idle) }},
		{"db_in_use_connections", "Number of in-use database connections.",
			func(s sql.DBStats) float64 { return float64(s.InUse) }},
		{"db_wait_count_total", "Total number of connections waited for.",
			func(s sql.DBStats) float64 { return float64(s.WaitCount) }},
		{"db_wait_duration_seconds_total", "Total time waited for connections in seconds.",
			func(s sql.DBStats) float64 { return s.WaitDuration.Seconds() }},
	}
	for _, g := range gauges {
		value := g.value
		if err := reg.Register(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: g.name, Help: g.help},
			func() float64 { return value(db.Stats()) },
		)); err != nil {
			return err
		}
	}
	return nil
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
