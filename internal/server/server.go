// Package server exposes the command layer over HTTP: one endpoint that
// validates, parses and executes a planner-produced tool chain and
// returns the per-step results.
package server

import (
	"context"
	"net/http"
	"time"

	"courier/internal/assistant/ports"
	"courier/internal/chain"
	"courier/internal/config"
	"courier/internal/shared/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the HTTP surface to the chain engine.
type Server struct {
	engine   *gin.Engine
	http     *http.Server
	registry ports.ToolRegistry
	executor *chain.Executor
	logger   logging.Logger
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, registry ports.ToolRegistry, executor *chain.Executor, logger logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine:   engine,
		registry: registry,
		executor: executor,
		logger:   logging.OrNop(logger),
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/api/tools", s.handleTools)
	engine.POST("/api/command", s.handleCommand)
	return s
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tools": len(s.registry.Names())})
}

func (s *Server) handleTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.registry.List()})
}
