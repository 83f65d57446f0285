package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebridge/internal/auth"
	"github.com/vovakirdan/wirebridge/internal/config"
	"github.com/vovakirdan/wirebridge/internal/core"
)

// NewServer builds the HTTP server: websocket endpoint, public backlog,
// metrics and the admin API. A nil gatherer disables /metrics.
func NewServer(bridge *core.Bridge, cfg *config.Config, jwtCfg *auth.JWTConfig, gatherer prometheus.Gatherer, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), CORSMiddleware(), LoggerMiddleware(logger))

	api := NewAPIHandlers(bridge, logger)

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(bridge, cfg.MaxMessageBytes, logger)))
	router.GET("/messages", api.Messages)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	admin := router.Group("/admin",
		RateLimitMiddleware(newRateLimiter(cfg.AdminRateLimitRPS, cfg.AdminRateLimitBurst), logger),
		AdminMiddleware(cfg.AdminToken, jwtCfg, logger),
	)
	admin.POST("/logout_all", api.LogoutAll)
	admin.POST("/password", api.SetPasswordRequired)
	admin.GET("/status", api.Status)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
