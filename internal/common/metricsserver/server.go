package metricsserver

import (
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/common/configtypes"
)

// HealthPath answers liveness probes next to the metrics endpoint
const HealthPath = "/healthz"

// MetricsHandler serves the exposition body
type MetricsHandler interface {
	ServeHTTP(ctx *fasthttp.RequestCtx)
}

// Route mounts an extra handler on the metrics listener
type Route struct {
	Path    string
	Handler fasthttp.RequestHandler
}

// NewServer builds the fasthttp server without starting it
func NewServer(path string, metrics MetricsHandler, routes ...Route) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:            NewHandler(path, metrics, routes...),
		Name:               "loadstats-metrics",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 1 * 1024,
		TCPKeepalive:       true,
		TCPKeepalivePeriod: 30 * time.Second,
		MaxConnsPerIP:      100,
		Concurrency:        100,
	}
}

// NewHandler routes the metrics path, the health probe and extra routes.
// Everything else is 404.
func NewHandler(path string, metrics MetricsHandler, routes ...Route) fasthttp.RequestHandler {
	extra := make(map[string]fasthttp.RequestHandler, len(routes))
	for _, r := range routes {
		extra[r.Path] = r.Handler
	}

	return func(ctx *fasthttp.RequestCtx) {
		requestPath := string(ctx.Path())
		switch requestPath {
		case path:
			metrics.ServeHTTP(ctx)
		case HealthPath:
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBodyString("ok")
		default:
			if h, ok := extra[requestPath]; ok {
				h(ctx)
				return
			}
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString("Not Found")
		}
	}
}

// Start binds the listener and serves in the background.
// Returns nil server when metrics are disabled.
func Start(cfg configtypes.MetricsConfig, metrics MetricsHandler, logger *zap.Logger, routes ...Route) (*fasthttp.Server, error) {
	if !cfg.Enabled {
		logger.Info("Metrics collection disabled")
		return nil, nil
	}

	// Bind synchronously so a busy port is reported to the caller
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, err
	}

	server := NewServer(cfg.Path, metrics, routes...)

	go func() {
		logger.Info("Metrics server listening",
			zap.String("listen", ln.Addr().String()),
			zap.String("path", cfg.Path))

		if err := server.Serve(ln); err != nil {
			logger.Error("Metrics server stopped",
				zap.String("listen", cfg.Listen),
				zap.Error(err))
		}
	}()

	return server, nil
}
