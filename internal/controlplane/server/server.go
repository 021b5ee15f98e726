// Package server is the HTTP API that wraps the freqtrade CLI: it lists strategies,
// reports status and trades, and starts or stops trading runs.
package server

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"

	"github.com/freqdash/freqdash/pkg/cache"
)

var log = logrus.WithField("module", "server")

type Config struct {
	FreqtradeBin  string
	StrategiesDir string
	TradesExport  string
	BaseConfig    string
	StopArgs      []string

	DBPath  string
	DataDir string
	LogsDir string

	CORSOrigin     string
	StatusCacheTTL time.Duration
	StopTimeout    time.Duration
	CommandRate    float64
	CommandBurst   int
}

type Server struct {
	cfg    Config
	db     *sql.DB
	runner Runner
	now    func() time.Time

	statusCache *cache.InMemoryCache[string, string]
	limiter     *rate.Limiter

	// procMu serializes start and stop.
	procMu sync.Mutex
}

type Option func(*Server)

// WithRunner replaces the exec-backed runner (tests).
func WithRunner(r Runner) Option {
	return func(s *Server) { s.runner = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(cfg Config, opts ...Option) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	if cfg.FreqtradeBin == "" {
		return nil, errors.New("freqtrade bin is required")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.LogsDir == "" {
		cfg.LogsDir = "logs"
	}
	if cfg.BaseConfig == "" {
		cfg.BaseConfig = "config.json"
	}
	if cfg.TradesExport == "" {
		cfg.TradesExport = "trades.json"
	}
	if len(cfg.StopArgs) == 0 {
		cfg.StopArgs = []string{"stop"}
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	if cfg.CommandRate <= 0 {
		cfg.CommandRate = 1
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = 3
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Server{
		cfg:         cfg,
		db:          db,
		runner:      NewExecRunner(),
		now:         time.Now,
		statusCache: cache.NewInMemoryCache[string, string](cfg.StatusCacheTTL),
		limiter:     rate.NewLimiter(rate.Limit(cfg.CommandRate), cfg.CommandBurst),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		s.statusCache.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database. Running trading processes are left alone.
func (s *Server) Close() error {
	s.statusCache.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery(), cors(s.cfg.CORSOrigin))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/", s.handleRoot)
	r.GET("/strategies", s.handleStrategies)
	r.GET("/status", s.handleStatus)
	r.GET("/trades", s.handleTrades)
	r.GET("/runs", s.handleRuns)
	r.GET("/runs/:id", s.handleRun)

	commands := r.Group("/", s.throttle())
	commands.POST("/start", s.handleStart)
	commands.POST("/stop", s.handleStop)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"ip":      c.ClientIP(),
			"latency": time.Since(start).String(),
		}).Info("http_request")
	}
}

func cors(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "http://localhost:3000"
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Max-Age", "86400")
		if origin == "*" {
			h.Set("Access-Control-Allow-Origin", "*")
		} else if reqOrigin := c.GetHeader("Origin"); reqOrigin != "" && reqOrigin == origin {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) throttle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			writeError(c, http.StatusTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, errorResponse{Detail: detail})
}
