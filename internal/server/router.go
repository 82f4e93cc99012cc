package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sjwg/reporter-backend/internal/http/handlers"
	"github.com/sjwg/reporter-backend/internal/http/middleware"
	"github.com/sjwg/reporter-backend/internal/platform/envutil"
)

type RouterConfig struct {
	HealthHandler  *handlers.HealthHandler
	AuthHandler    *handlers.AuthHandler
	UploadHandler  *handlers.UploadHandler
	ReportHandler  *handlers.ReportHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimit      gin.HandlerFunc
	UploadRoot     string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/", cfg.HealthHandler.Root)
	router.GET("/health", cfg.HealthHandler.Health)
	router.Static("/uploads", cfg.UploadRoot)

	api := router.Group("/api")
	if cfg.RateLimit != nil {
		api.Use(cfg.RateLimit)
	}
	api.POST("/auth/register", cfg.AuthHandler.Register)
	api.POST("/auth/login", cfg.AuthHandler.Login)
	api.POST("/auth/refresh", cfg.AuthHandler.Refresh)

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.POST("/upload", cfg.UploadHandler.Upload)
	protected.GET("/reports", cfg.ReportHandler.List)
	protected.GET("/reports/:id", cfg.ReportHandler.Get)
	protected.DELETE("/reports/:id", cfg.ReportHandler.Delete)

	return router
}

func allowedOrigins() []string {
	raw := envutil.String("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
