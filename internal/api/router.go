// Package api exposes the orchestrator over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

type Options struct {
	Defaults sim.Parameters
	// Events serves the websocket event stream. Nil disables the route.
	Events http.Handler
	Logger *slog.Logger
	System string
}

func NewRouter(orch *sandbox.Orchestrator, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handler{
		orch:     orch,
		defaults: opts.Defaults,
		logger:   logger,
		system:   opts.System,
		now:      time.Now,
	}
	if h.system == "" {
		h.system = "civsandbox"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(cors())

	r.GET("/", h.banner)

	simulation := r.Group("/api/simulation")
	{
		simulation.POST("/run", h.run)
		simulation.GET("/status", h.status)
		simulation.GET("/history", h.listHistory)
		simulation.GET("/history/:id", h.getRun)
		simulation.POST("/history/:id/replay", h.replay)
		simulation.GET("/history/:id/export", h.exportRun)
		if opts.Events != nil {
			simulation.GET("/events", gin.WrapH(opts.Events))
		}
	}
	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
