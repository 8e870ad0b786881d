package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bank-reconciliation/internal/api/handler"
	"github.com/bank-reconciliation/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	statementHandler *handler.StatementHandler,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Pending pool operations
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", statementHandler.Admit)
			transactions.POST("/upload/:side", statementHandler.Upload)
			transactions.GET("/pending/:side", statementHandler.Pending)
		}

		// Match operations
		reconcile := v1.Group("/reconcile")
		{
			reconcile.POST("/manual", reconciliationHandler.MatchManual)
			reconcile.POST("/one-to-many", reconciliationHandler.MatchOneToMany)
			reconcile.POST("/many-to-one", reconciliationHandler.MatchManyToOne)
			reconcile.POST("/auto", reconciliationHandler.MatchAuto)
		}

		// Matched ledger and its durable archive
		matches := v1.Group("/matches")
		{
			matches.GET("", reconciliationHandler.Matched)
			matches.GET("/archive", reconciliationHandler.MatchedArchive)
		}

		v1.GET("/report", reconciliationHandler.Report)

		// Administrative reset, guarded by an explicit confirmation flag
		v1.POST("/admin/clear", reconciliationHandler.Clear)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
