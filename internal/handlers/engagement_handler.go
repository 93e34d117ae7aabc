package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalua-t/evaluation-service/internal/services"
	"github.com/evalua-t/evaluation-service/internal/utils"
)

// EngagementHandler serves comment like endpoints.
type EngagementHandler struct {
	BaseHandler
	engagement services.EngagementService
}

func NewEngagementHandler(engagement services.EngagementService, logger utils.Logger) *EngagementHandler {
	return &EngagementHandler{
		BaseHandler: NewBaseHandler(logger),
		engagement:  engagement,
	}
}

// ToggleLike flips the caller's like on a comment
func (h *EngagementHandler) ToggleLike(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	commentID, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	result, err := h.engagement.ToggleLike(c.Request.Context(), commentID, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to toggle like")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMyComments returns the caller's comment history with like data
func (h *EngagementHandler) ListMyComments(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	comments, err := h.engagement.ListMyComments(c.Request.Context(), userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to list comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
