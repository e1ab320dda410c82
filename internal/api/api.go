// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/vendbees/backend-go/internal/api/handlers"
	"github.com/andresuchdata/vendbees/backend-go/internal/api/middleware"
	"github.com/andresuchdata/vendbees/backend-go/internal/metrics"
	"github.com/andresuchdata/vendbees/backend-go/internal/service"
)

type Services struct {
	DashboardService *service.DashboardService
	InventoryService *service.InventoryService
	Commander        handlers.Commander
	Metrics          *metrics.Registry
}

type RouterConfig struct {
	AllowedOrigins []string
	CommandRPS     float64
	CommandBurst   int
}

func NewRouter(services *Services, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(cfg.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	if services == nil {
		return router
	}

	if services.Metrics != nil {
		router.GET("/metrics", gin.WrapH(services.Metrics.Handler()))
	}

	apiGroup := router.Group("/api/v1")

	if services.DashboardService != nil {
		dashboardHandler := handlers.NewDashboardHandler(services.DashboardService)
		dashboardGroup := apiGroup.Group("/dashboard")
		{
			dashboardGroup.GET("", dashboardHandler.GetDashboard)
			dashboardGroup.GET("/metrics", dashboardHandler.GetMetrics)
			dashboardGroup.GET("/trend", dashboardHandler.GetTrend)
			dashboardGroup.GET("/restock", dashboardHandler.GetRestock)
		}
		apiGroup.GET("/tax-buckets", dashboardHandler.GetTaxBuckets)
	}

	if services.InventoryService != nil {
		inventoryHandler := handlers.NewInventoryHandler(services.InventoryService)
		apiGroup.GET("/products", inventoryHandler.GetProducts)
		apiGroup.GET("/machines", inventoryHandler.GetMachines)
		apiGroup.GET("/machines/:id", inventoryHandler.GetMachine)
		apiGroup.GET("/purchases", inventoryHandler.GetPurchases)
		apiGroup.GET("/vendors", inventoryHandler.GetVendors)
	}

	if services.Commander != nil {
		var observe handlers.CommandObserver
		if services.Metrics != nil {
			observe = services.Metrics.ObserveCommand
		}
		commandHandler := handlers.NewCommandHandler(services.Commander, observe)
		limiter := middleware.NewRateLimiter(cfg.CommandRPS, cfg.CommandBurst)

		commandGroup := apiGroup.Group("", limiter.Handler())
		{
			commandGroup.POST("/sell", commandHandler.Sell)
			commandGroup.POST("/refill", commandHandler.Refill)
			commandGroup.POST("/sync/refresh", commandHandler.Refresh)
		}
		apiGroup.GET("/status", commandHandler.GetStatus)
		apiGroup.GET("/health", commandHandler.Health)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
