package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"romvault/internal/auth"
	"romvault/internal/events"
	"romvault/internal/games"
	"romvault/internal/roles"
	"romvault/internal/syncjob"
)

// NewRouter builds the HTTP API. checker may be nil when Discord is not
// configured, in which case /roles answers 503.
func (a *App) NewRouter(checker *roles.Checker) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(a))
	if err := router.SetTrustedProxies(a.Config.HTTP.TrustedProxies); err != nil {
		a.Logger.Error().Err(err).Strs("trusted_proxies", a.Config.HTTP.TrustedProxies).
			Msg("ignoring trusted proxies; client IPs come from the socket")
		_ = router.SetTrustedProxies(nil)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", a.ready)

	games.NewHandler(a.Store).RegisterRoutes(router.Group("/games"))
	router.GET("/ws", events.WSHandler(a.Hub))

	protected := router.Group("")
	protected.Use(auth.Middleware(a.Tokens))

	if checker != nil {
		roles.NewHandler(checker).RegisterRoutes(protected.Group("/roles"))
	} else {
		protected.GET("/roles/:memberId", func(c *gin.Context) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "discord is not configured"})
		})
	}

	protected.POST("/sync/run", a.startSync)
	protected.GET("/sync/last", a.lastSync)

	return router
}

func (a *App) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	stats := a.Hub.Stats()
	if err := a.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"db_error":   err.Error(),
			"ws_clients": stats.WSClients,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"db":         "ok",
		"ws_clients": stats.WSClients,
	})
}

// startSync answers 202 and runs in the background; the report goes out
// over /ws and is stored for /sync/last.
func (a *App) startSync(c *gin.Context) {
	err := a.Runner.Start(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "started"})
	case errors.Is(err, syncjob.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "sync already running"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (a *App) lastSync(c *gin.Context) {
	run, err := a.Store.LastRun(c.Request.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("load last run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load failed"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sync has run yet"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func requestLogger(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.Logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
