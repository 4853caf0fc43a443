package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/safewallet/walletkit/internal/utils"
)

// Server starts the metrics server on the address and port configured by the
// metrics flags. It is a no-op when metrics are disabled.
func Server(ctx *cli.Context) {
	if !ctx.Bool(utils.MetricsEnabled.Name) {
		return
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	pprof.Register(router)
	router.GET("/metrics", func(c *gin.Context) {
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})

	probes := NewProbesController()
	router.GET("/health", probes.HealthCheck)
	router.GET("/ready", probes.Ready)

	address := fmt.Sprintf("%s:%d", ctx.String(utils.MetricsAddr.Name), ctx.Int(utils.MetricsPort.Name))
	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: time.Minute,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Crit("run metrics http server failure", "error", err)
		}
	}()

	log.Info("Starting metrics server", "address", address)
}

// Use installs request metrics and probe routes on the API router.
func Use(router *gin.Engine, name string, reg prometheus.Registerer) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: name,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed, by method, path and status.",
	}, []string{"method", "path", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: name,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
	reg.MustRegister(requests, duration)

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		requests.WithLabelValues(c.Request.Method, path, fmt.Sprintf("%d", c.Writer.Status())).Inc()
		duration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	})

	probes := NewProbesController()
	router.GET("/health", probes.HealthCheck)
	router.GET("/ready", probes.Ready)
}
