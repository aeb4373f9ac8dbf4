package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/optica-backoffice/cash-ledger/internal/api/handler"
	"github.com/optica-backoffice/cash-ledger/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	pettyHandler *handler.PettyCashHandler,
	bankHandler *handler.BankCashHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Petty cash drawer operations
		petty := v1.Group("/petty-registers")
		{
			petty.POST("", pettyHandler.Open)
			petty.GET("", pettyHandler.List)
			petty.GET("/current", pettyHandler.Current)
			petty.GET("/:id", pettyHandler.GetByID)
			petty.POST("/:id/movements", pettyHandler.CreateMovement)
			petty.GET("/:id/movements", pettyHandler.Movements)
			petty.POST("/:id/close", pettyHandler.Close)
			petty.POST("/:id/settle", pettyHandler.Settle)
			petty.POST("/:id/archive", pettyHandler.Archive)
			petty.POST("/:id/restore", pettyHandler.Restore)
		}

		// Bank register operations
		bank := v1.Group("/bank-registers")
		{
			bank.POST("", bankHandler.OpenOrUpdate)
			bank.GET("", bankHandler.List)
			bank.POST("/movements", bankHandler.CreateMovement)
			bank.POST("/close-month", bankHandler.CloseMonth)
			bank.POST("/close-expired", bankHandler.CloseExpired)
			bank.GET("/:id", bankHandler.GetByID)
			bank.GET("/:id/movements", bankHandler.Movements)
			bank.POST("/:id/reconcile", bankHandler.Reconcile)
			bank.GET("/:id/balance", bankHandler.VerifyBalance)
			bank.POST("/:id/balance/repair", bankHandler.RepairBalance)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
