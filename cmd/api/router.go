package api

import (
	"net/http"

	"mailtriage/internal/triage/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, approvalHandler *delivery.ApprovalHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Approval hub routes
		pending := api.Group("/pending")
		{
			pending.GET("", approvalHandler.ListPending)
			pending.POST("/:id/approve", approvalHandler.Approve)
			pending.POST("/:id/reject", approvalHandler.Reject)
		}
	}
}
