package delivery

import (
	"errors"
	"net/http"

	"mailtriage/internal/triage/domain"
	"mailtriage/internal/triage/usecase"

	"github.com/gin-gonic/gin"
)

// ApprovalHandler exposes the approval gate to the operator dashboard:
// list pending items, approve, reject. These are the only three operations
// the core offers that surface.
type ApprovalHandler struct {
	queue *usecase.ApprovalQueue
}

func NewApprovalHandler(queue *usecase.ApprovalQueue) *ApprovalHandler {
	return &ApprovalHandler{queue: queue}
}

func (h *ApprovalHandler) ListPending(c *gin.Context) {
	items := h.queue.List()
	c.JSON(http.StatusOK, gin.H{
		"pending": items,
		"count":   len(items),
	})
}

func (h *ApprovalHandler) Approve(c *gin.Context) {
	id := c.Param("id")

	summary, err := h.queue.Approve(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotPending) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending item with that id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *ApprovalHandler) Reject(c *gin.Context) {
	id := c.Param("id")

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.queue.Reject(c.Request.Context(), id, req.Reason); err != nil {
		if errors.Is(err, domain.ErrNotPending) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending item with that id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}
