package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records storage query latency by operation and collection.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bolify_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// ViewsRecorded counts view requests by outcome (recorded, duplicate).
	ViewsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bolify_blog_views_total",
		Help: "Blog view requests by outcome",
	}, []string{"outcome"})

	// LikesToggled counts like toggles by resulting state (liked, unliked).
	LikesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bolify_blog_like_toggles_total",
		Help: "Blog like toggles by resulting state",
	}, []string{"state"})

	// CommentsAdded counts appended comments.
	CommentsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bolify_blog_comments_total",
		Help: "Comments appended to blogs",
	})

	// RedisCommands counts Redis commands by key family (revocation,
	// ratelimit, other) and result (ok, error).
	RedisCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bolify_redis_commands_total",
		Help: "Redis commands by key family and result",
	}, []string{"family", "result"})

	// ImageStoreFailures counts image store errors by operation (upload, delete).
	ImageStoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bolify_image_store_failures_total",
		Help: "Image store errors by operation",
	}, []string{"operation"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, collection string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
	}
}
