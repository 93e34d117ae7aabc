package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
	"github.com/evalua-t/evaluation-service/internal/services"
	"github.com/evalua-t/evaluation-service/internal/utils"
)

// ResourceHandler serves resource submission, voting, and moderation.
type ResourceHandler struct {
	BaseHandler
	resource services.ResourceService
}

func NewResourceHandler(resource services.ResourceService, logger utils.Logger) *ResourceHandler {
	return &ResourceHandler{
		BaseHandler: NewBaseHandler(logger),
		resource:    resource,
	}
}

// ===== USER ENDPOINTS =====

// Submit registers an uploaded file for review
func (h *ResourceHandler) Submit(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	var req services.SubmitResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	resource, err := h.resource.Submit(c.Request.Context(), &req, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to submit resource")
		return
	}

	c.JSON(http.StatusCreated, resource)
}

// CastVote records a usefulness vote on an approved resource
func (h *ResourceHandler) CastVote(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	id, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	var req services.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	resource, err := h.resource.CastVote(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to cast vote")
		return
	}

	c.JSON(http.StatusOK, resource)
}

// Download returns a time-limited URL for the stored file
func (h *ResourceHandler) Download(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	id, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	url, err := h.resource.DownloadURL(c.Request.Context(), id, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to create download URL")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ListByProfessor returns the approved resources for one professor
func (h *ResourceHandler) ListByProfessor(c *gin.Context) {
	id, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	resources, err := h.resource.ListApprovedByProfessor(c.Request.Context(), id)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to list resources")
		return
	}

	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

// ListMine returns the caller's submissions in every status
func (h *ResourceHandler) ListMine(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	resources, err := h.resource.ListMine(c.Request.Context(), userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to list resources")
		return
	}

	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

// MyContribution returns the caller's contribution stats
func (h *ResourceHandler) MyContribution(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	stats, err := h.resource.MyContribution(c.Request.Context(), userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to load contribution stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ===== MODERATION ENDPOINTS =====

// List returns resources matching admin-supplied filters
func (h *ResourceHandler) List(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	filters := h.parseResourceFilters(c)
	resources, err := h.resource.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to list resources")
		return
	}

	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

// Review approves or rejects one resource
func (h *ResourceHandler) Review(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	id, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	var req services.ReviewResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	resource, err := h.resource.Review(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to review resource")
		return
	}

	c.JSON(http.StatusOK, resource)
}

// BatchReview applies one status to many resources
func (h *ResourceHandler) BatchReview(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	var req services.BatchReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	affected, err := h.resource.BatchReview(c.Request.Context(), &req, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to batch review resources")
		return
	}

	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

// Purge removes a resource and its stored file
func (h *ResourceHandler) Purge(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	id, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.resource.Purge(c.Request.Context(), id, userID); err != nil {
		h.RespondServiceError(c, err, "Failed to purge resource")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// AdminStats returns the moderation dashboard numbers
func (h *ResourceHandler) AdminStats(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	stats, err := h.resource.AdminStats(c.Request.Context(), userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to load admin stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// TopContributors returns the uploader leaderboard
func (h *ResourceHandler) TopContributors(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	contributors, err := h.resource.TopContributors(c.Request.Context(), limit, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to rank contributors")
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributors": contributors})
}

// ExportReport streams the moderation report workbook
func (h *ResourceHandler) ExportReport(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	data, err := h.resource.ExportAdminReport(c.Request.Context(), userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to export report")
		return
	}

	filename := "resources-" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *ResourceHandler) parseResourceFilters(c *gin.Context) repositories.ResourceFilters {
	filters := repositories.ResourceFilters{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if v := c.Query("status"); v != "" {
		status := models.ResourceStatus(v)
		filters.Status = &status
	}
	if v := c.Query("type"); v != "" {
		t := models.ResourceType(v)
		filters.Type = &t
	}
	if v := c.Query("professor_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			pid := uint(id)
			filters.ProfessorID = &pid
		}
	}
	if v := c.Query("period"); v != "" {
		filters.AcademicPeriod = &v
	}
	if v := c.Query("q"); v != "" {
		filters.FileName = &v
	}
	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filters.Limit = limit
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil {
			filters.Offset = offset
		}
	}

	return filters
}
