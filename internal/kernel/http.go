// Package kernel assembles the HTTP handler: global middleware, the
// metrics exporter, static mounts and the API routes.
package kernel

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/coursemart/pkg/metrics"
	"github.com/shashiranjanraj/coursemart/pkg/middleware"
	"github.com/shashiranjanraj/coursemart/pkg/reqid"
	"github.com/shashiranjanraj/coursemart/pkg/router"
)

// Config tunes the global middleware.
type Config struct {
	FrontendURL string
	// RateLimit is the number of requests per minute per client IP. Zero
	// disables the limiter.
	RateLimit int
	// Mounts are sub-handlers attached under a path prefix, e.g. the local
	// image files under /storage.
	Mounts map[string]http.Handler
}

// HTTPKernel owns the router and the middleware that holds resources.
type HTTPKernel struct {
	router  *router.Router
	limiter *middleware.RateLimiter
}

// NewHTTPKernel builds the router. Middleware runs outermost first:
//  1. Prometheus metrics
//  2. Request ID
//  3. Logger
//  4. Recovery
//  5. CORS
//  6. Rate limiter
func NewHTTPKernel(cfg Config, register func(r *router.Router)) *HTTPKernel {
	k := &HTTPKernel{router: router.New()}

	k.router.Use(metrics.Middleware())
	k.router.Use(reqid.Middleware())
	k.router.Use(middleware.Logger)
	k.router.Use(middleware.Recovery)
	k.router.Use(middleware.CORS(middleware.FrontendCORS(cfg.FrontendURL)))
	if cfg.RateLimit > 0 {
		k.limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
		k.router.Use(k.limiter.Middleware)
	}

	k.router.Mount("/metrics", "metrics", metrics.Handler())
	for prefix, h := range cfg.Mounts {
		k.router.Mount(prefix, prefix, h)
	}

	register(k.router)
	return k
}

func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

func (k *HTTPKernel) Router() *router.Router { return k.router }

// Close stops the rate limiter's sweeper.
func (k *HTTPKernel) Close() {
	if k.limiter != nil {
		k.limiter.Close()
	}
}
