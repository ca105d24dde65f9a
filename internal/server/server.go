// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbd888/sellerrisk/internal/analytics"
	"github.com/mbd888/sellerrisk/internal/config"
	"github.com/mbd888/sellerrisk/internal/dataset"
	"github.com/mbd888/sellerrisk/internal/health"
	"github.com/mbd888/sellerrisk/internal/idgen"
	"github.com/mbd888/sellerrisk/internal/insights"
	"github.com/mbd888/sellerrisk/internal/logging"
	"github.com/mbd888/sellerrisk/internal/metrics"
	"github.com/mbd888/sellerrisk/internal/modelstore"
	"github.com/mbd888/sellerrisk/internal/ratelimit"
	"github.com/mbd888/sellerrisk/internal/scoring"
	"github.com/mbd888/sellerrisk/internal/security"
	"github.com/mbd888/sellerrisk/internal/validation"
)

// Version is reported by the health endpoint; set by ldflags in cmd/server.
var Version = "dev"

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg         *config.Config
	tables      dataset.Store
	models      *modelstore.Store
	closeModels func() error
	policy      analytics.Policy
	checks      *health.Registry
	db          *sql.DB // nil when tables are CSV files
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger
	limiter     *ratelimit.Limiter // nil when predictions are unthrottled
	drainDelay  time.Duration

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTables sets the table store instead of opening one from config (for testing)
func WithTables(tables dataset.Store) Option {
	return func(s *Server) {
		s.tables = tables
	}
}

// WithModelStore sets the model store instead of opening one from config (for testing)
func WithModelStore(models *modelstore.Store) Option {
	return func(s *Server) {
		s.models = models
	}
}

// WithPolicy overrides the risk policy
func WithPolicy(p analytics.Policy) Option {
	return func(s *Server) {
		s.policy = p
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:         cfg,
		logger:      logging.New(cfg.LogLevel, cfg.LogFormat),
		policy:      analytics.DefaultPolicy(),
		checks:      health.NewRegistry(),
		closeModels: func() error { return nil },
		drainDelay:  5 * time.Second,
	}

	// Apply options first (may set stores/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	// Tables: Postgres if DATABASE_URL set, otherwise CSV files in DATA_DIR
	if s.tables == nil {
		tables, db, err := dataset.Open(ctx, cfg, s.logger)
		if err != nil {
			return nil, err
		}
		s.tables = tables
		s.db = db
		if db != nil {
			if err := metrics.RegisterDBStats(prometheus.DefaultRegisterer, db); err != nil {
				s.logger.Warn("db stats metrics not registered", "error", err)
			}
			s.checks.Register(health.Ping("postgres", db.PingContext))
			s.logger.Info("using postgres tables", "url", maskDSN(cfg.DatabaseURL))
		} else {
			s.checks.Register(health.Dir("data_dir", cfg.DataDir, true))
			s.logger.Info("using csv tables", "dir", cfg.DataDir)
		}
	} else {
		s.checks.Register(health.Ping("tables", s.tables.Ping))
	}

	// Model artifacts
	if s.models == nil {
		models, closeModels, err := modelstore.Open(ctx, cfg)
		if err != nil {
			s.closeDB()
			return nil, fmt.Errorf("failed to open model store: %w", err)
		}
		s.models = models
		s.closeModels = closeModels
		if cfg.ModelStore == config.ModelStoreFile || cfg.ModelStore == "" {
			s.checks.Register(health.Dir("models_dir", cfg.ModelsDir, true))
		} else {
			s.checks.Register(health.Ping("model_store", models.Ping))
		}
		s.logger.Info("model store ready", "backend", cfg.ModelStore)
	} else {
		s.checks.Register(health.Ping("model_store", s.models.Ping))
	}

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	s.router.Use(security.CORSMiddleware(s.cfg.CORSOrigins))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.WithPrefix("req_")
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	predictor := scoring.NewPredictor(s.models, s.tables, s.policy, s.logger)
	h := insights.NewHandler(s.tables, analytics.NewEngine(s.policy), s.models, predictor)

	var predictMW []gin.HandlerFunc
	if s.cfg.PredictRateLimit > 0 {
		s.limiter = ratelimit.New(ratelimit.Config{
			RequestsPerMinute: s.cfg.PredictRateLimit,
			BurstSize:         s.cfg.PredictBurst,
			CleanupInterval:   time.Minute,
		})
		predictMW = append(predictMW, s.limiter.Middleware())
	}

	api := s.router.Group("")
	api.Use(validation.QueryIDMiddleware("seller_id", "marketplace_id"))
	h.RegisterRoutes(api, predictMW...)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.checks.CheckAll(ctx)

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   Version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "version", Version)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	s.ready.Store(true)
	s.logger.Info("server ready")

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		s.ready.Store(false)
		s.release()
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Give load balancers time to stop sending traffic
	time.Sleep(s.drainDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.release()
	s.logger.Info("server stopped")
	return nil
}

// release stops the rate limiter and closes the model store and database
// connections.
func (s *Server) release() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := s.closeModels(); err != nil {
		s.logger.Error("model store close error", "error", err)
	}
	s.closeDB()
}

func (s *Server) closeDB() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	} else {
		s.logger.Info("database connection closed")
	}
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
