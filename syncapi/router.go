package syncapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/fieldsales_backend/middlewares"
)

// NewRouter mounts every endpoint of s.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.Use(cors.New(corsConfig()))
	r.Use(middlewares.SessionMiddleware(s.Session))
	r.Use(middlewares.ErrorLogger(s.Logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/session/login", s.LoginHandler())
	api.POST("/session/logout", s.LogoutHandler())
	api.GET("/session", s.SessionHandler())
	api.POST("/import", s.ImportAllHandler())
	api.POST("/import/:kind", s.ImportKindHandler())
	api.POST("/upload", s.UploadHandler())
	api.POST("/export/:kind/:mode", s.ExportHandler())
	api.GET("/runs", s.RunsHandler())
	api.GET("/runs/:id", s.RunHandler())
	api.POST("/orders", s.CreateOrderHandler())
	api.POST("/members", s.CreateMemberHandler())
	api.POST("/visits", s.CreateVisitHandler())
	api.GET("/reports/orders-by-counterpart", s.OrdersReportHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

// CORS_ALLOWED_ORIGINS (comma-separated) restricts origins in production; elsewhere all are allowed.
func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	allowed := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		cfg.AllowOrigins = splitAndTrim(allowed)
		if len(cfg.AllowOrigins) == 0 {
			cfg.AllowOrigins = []string{"http://localhost"}
		}
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods("GET", "POST", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", "x-correlation-id")
	cfg.AddExposeHeaders("Content-Length", "x-correlation-id")
	return cfg
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
