package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Web server metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_http_requests_total",
		Help: "Total HTTP requests by route, method, and status code",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hh_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"route", "method"})

	RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hh_rate_limit_hits_total",
		Help: "Total rate limit rejections",
	})
)

// Conversion metrics.
var (
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_conversions_total",
		Help: "Conversions by surface and result (converted or unchanged)",
	}, []string{"surface", "result"})

	ConversionInputRunes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hh_conversion_input_runes",
		Help:    "Length of conversion inputs in runes",
		Buckets: prometheus.ExponentialBuckets(1, 4, 9),
	})

	DictionaryEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hh_dictionary_entries",
		Help: "Entries loaded per dictionary table",
	}, []string{"table"})
)

// History metrics.
var (
	HistoryWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_history_writes_total",
		Help: "Conversion history writes by result",
	}, []string{"result"})

	HistoryDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hh_history_dropped_total",
		Help: "Conversion history records dropped because the buffer was full",
	})

	RetentionDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hh_retention_deleted_total",
		Help: "Conversion history rows deleted by retention",
	})

	RetentionCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hh_retention_cycle_duration_seconds",
		Help:    "Duration of each retention cycle",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30},
	})
)

// Bot metrics.
var (
	BotCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hh_bot_commands_total",
		Help: "Discord commands by command and result",
	}, []string{"command", "result"})
)

// Database pool metrics (gauges updated periodically).
var (
	DBPoolTotalConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hh_db_pool_total_conns",
		Help: "Total number of connections in the pool",
	})

	DBPoolIdleConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hh_db_pool_idle_conns",
		Help: "Number of idle connections in the pool",
	})

	DBPoolAcquiredConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hh_db_pool_acquired_conns",
		Help: "Number of acquired connections in the pool",
	})

	DBPoolMaxConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hh_db_pool_max_conns",
		Help: "Maximum number of connections allowed in the pool",
	})
)

// RecordConversion counts one conversion on the given surface.
func RecordConversion(surface string, inputRunes int, converted bool) {
	result := "unchanged"
	if converted {
		result = "converted"
	}
	ConversionsTotal.WithLabelValues(surface, result).Inc()
	ConversionInputRunes.Observe(float64(inputRunes))
}
