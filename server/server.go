// Package server is a local HTTP server for previewing mapping templates.
package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/prognoshealth/vtlemu/renderapi"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// Options configure the server.
type Options struct {
	RequestsPerSecond float64
	Burst             int
	Logger            *logrus.Logger
	Registry          *prometheus.Registry
}

// Server serves the render endpoint over HTTP.
type Server struct {
	svc     *renderapi.Service
	logger  *logrus.Logger
	metrics *metrics
	engine  *gin.Engine
}

// New returns a Server rendering through svc.
func New(svc *renderapi.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		svc:     svc,
		logger:  opts.Logger,
		metrics: newMetrics(opts.Registry),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(StructuredLogger(s.logger))

	engine.GET("/health", s.health)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))

	limited := engine.Group("/")
	if opts.RequestsPerSecond > 0 {
		limited.Use(RateLimiter(opts.RequestsPerSecond, opts.Burst, s.logger))
	}
	limited.POST("/render", s.render)

	s.engine = engine
	return s
}

// Handler returns the server's http handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.WithFields(logrus.Fields{"addr": addr}).Info("vtl emulator listening")
	return s.engine.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) render(c *gin.Context) {
	start := time.Now()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, renderapi.ErrorResponse{Error: err.Error()})
		return
	}

	status, payload := s.svc.Handle(body)
	s.metrics.observe(status, time.Since(start))

	c.JSON(status, payload)
}

// RequestID adds a request id to each request, reusing X-Request-ID when the
// client sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger logs each request with its latency and status.
func StructuredLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"request_id":  c.GetString(RequestIDKey),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"latency_ms":  float64(time.Since(start).Nanoseconds()) / 1000000,
			"client_ip":   c.ClientIP(),
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.WithFields(fields).Error("Server error")
		case c.Writer.Status() >= 400:
			logger.WithFields(fields).Warn("Client error")
		default:
			logger.WithFields(fields).Info("Request completed")
		}
	}
}

// RateLimiter rejects requests above requestsPerSecond with a 429.
func RateLimiter(requestsPerSecond float64, burst int, logger *logrus.Logger) gin.HandlerFunc {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.WithFields(logrus.Fields{
				"client_ip":  c.ClientIP(),
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
			}).Warn("Rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, renderapi.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
