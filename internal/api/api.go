// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/api/handlers"
	"github.com/andresuchdata/freshstock/backend-go/internal/api/middleware"
	"github.com/andresuchdata/freshstock/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(services *service.Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins: defaultOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization",
			middleware.RequestIDHeader, middleware.UserIDHeader, middleware.UserRoleHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")
	apiGroup.Use(middleware.Identity())
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}

	if services.Inventory != nil {
		inventoryHandler := handlers.NewInventoryHandler(services.Inventory)

		apiGroup.POST("/sales", inventoryHandler.CreateSale)
		apiGroup.POST("/sales/allocate", inventoryHandler.Allocate)
		apiGroup.GET("/fifo/check", inventoryHandler.CheckFIFO)

		apiGroup.GET("/stores/:store/stock", inventoryHandler.GetStoreStock)
		apiGroup.GET("/stores/:store/products/:product/batches", inventoryHandler.GetProductBatches)

		stockGroup := apiGroup.Group("/stock")
		{
			stockGroup.POST("", inventoryHandler.CreateStockEntry)
			stockGroup.POST("/movements", inventoryHandler.CreateMovement)
			stockGroup.GET("/movements/:product", inventoryHandler.ListMovements)
			stockGroup.PATCH("/:store/:batch", inventoryHandler.UpdateStockEntry)
		}

		batchGroup := apiGroup.Group("/batches")
		{
			batchGroup.GET("", inventoryHandler.ListBatches)
			batchGroup.POST("", inventoryHandler.CreateBatch)
			batchGroup.GET("/:batch", inventoryHandler.GetBatch)
			batchGroup.PATCH("/:batch", inventoryHandler.UpdateBatch)
			batchGroup.DELETE("/:batch", inventoryHandler.DeleteBatch)
		}
	}

	if services.StockHealth != nil {
		stockHealthHandler := handlers.NewStockHealthHandler(services.StockHealth)

		apiGroup.GET("/stores/:store/overview", stockHealthHandler.GetOverview)
		apiGroup.GET("/stores/:store/products/:product/velocity", stockHealthHandler.GetVelocity)
		apiGroup.GET("/alerts", stockHealthHandler.GetAlerts)
	}

	if services.Replenishment != nil {
		replenishmentHandler := handlers.NewReplenishmentHandler(services.Replenishment)
		replenishmentGroup := apiGroup.Group("/replenishment")
		{
			replenishmentGroup.POST("/frequencies", replenishmentHandler.UpsertFrequency)
			replenishmentGroup.GET("/frequencies", replenishmentHandler.ListFrequencies)
			replenishmentGroup.GET("/frequencies/:store/:product", replenishmentHandler.GetFrequency)
			replenishmentGroup.DELETE("/frequencies/:store/:product", replenishmentHandler.DeleteFrequency)
			replenishmentGroup.POST("/frequencies/:store/:product/replenish", replenishmentHandler.RecordReplenishment)
			replenishmentGroup.GET("/logs/:store/:product", replenishmentHandler.ListLogs)

			replenishmentGroup.GET("/preview/:store", replenishmentHandler.Preview)

			listGroup := replenishmentGroup.Group("/lists")
			{
				listGroup.POST("/generate/:store", replenishmentHandler.GenerateList)
				listGroup.GET("", replenishmentHandler.ListLists)
				listGroup.GET("/:list", replenishmentHandler.GetList)
				listGroup.PATCH("/:list", replenishmentHandler.UpdateList)
				listGroup.DELETE("/:list", replenishmentHandler.DeleteList)
				listGroup.POST("/:list/items", replenishmentHandler.AddItem)
				listGroup.PUT("/:list/items/:product", replenishmentHandler.OverrideItem)
				listGroup.DELETE("/:list/items/:product", replenishmentHandler.RemoveItem)
			}
		}
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
