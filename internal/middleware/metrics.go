package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RateLimitRejections counts requests rejected by per-route rate limits.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bolify_rate_limit_rejections_total",
		Help: "Requests rejected by per-route rate limits",
	}, []string{"resource"})

	// AuthFailures counts rejected credentials by error code.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bolify_auth_failures_total",
		Help: "Requests rejected by authentication middleware",
	}, []string{"code"})
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide Prometheus HTTP middleware. The
// collectors live in the default registry, so they are created once.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	handler := p.Middleware
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return handler(c)
	}
}
