package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/cortexctl/internal/auth"
	logs "github.com/danmuck/cortexctl/internal/logging"
	"github.com/danmuck/cortexctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const adminNode = "cortexctl.admin"

// AdminRouter serves the read-only admin endpoints.
func (s *Service) AdminRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(adminNode))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.AdminCORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	guarded := r.Group("/")
	if token := strings.TrimSpace(s.cfg.AdminToken); token != "" {
		guarded.Use(auth.Middleware(auth.StaticToken{Token: token}))
	}
	guarded.GET("/status", func(c *gin.Context) {
		client := s.Client()
		if client == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not connected"})
			return
		}
		c.JSON(http.StatusOK, client.Status())
	})
	guarded.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (s *Service) serveAdmin(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.AdminRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logs.Infof("client.Service.admin listening addr=%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
