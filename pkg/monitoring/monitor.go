package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// LessonCompletions 标记完成的次数，scope 区分课程内 / 独立播放
	LessonCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lesson_completions_total",
			Help: "Number of lessons marked complete",
		},
		[]string{"scope"},
	)

	RollupRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_rollup_recomputes_total",
			Help: "Course progress rollup recomputations by result",
		},
		[]string{"trigger", "result"},
	)

	PlaybackEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playback_events_total",
			Help: "Playback position reports by transport",
		},
		[]string{"transport"},
	)

	PlaybackConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "playback_ws_connections",
			Help: "Open playback websocket connections",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(LessonCompletions)
		prometheus.MustRegister(RollupRecomputes)
		prometheus.MustRegister(PlaybackEvents)
		prometheus.MustRegister(PlaybackConnections)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
