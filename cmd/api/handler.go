package api

import (
	"mailtriage/internal/triage/delivery"
	"mailtriage/internal/triage/usecase"

	"github.com/gin-gonic/gin"
)

// Handler owns the gin engine serving the operator dashboard API.
type Handler struct {
	router *gin.Engine
}

func NewHandler(queue *usecase.ApprovalQueue) *Handler {
	router := gin.Default()

	approvalHandler := delivery.NewApprovalHandler(queue)
	SetupRoutes(router, approvalHandler)

	return &Handler{router: router}
}

func (h *Handler) Start(addr string) error {
	return h.router.Run(addr)
}
