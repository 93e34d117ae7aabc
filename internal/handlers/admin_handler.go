package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalua-t/evaluation-service/internal/services"
	"github.com/evalua-t/evaluation-service/internal/utils"
)

// AdminHandler serves the admin roster and maintenance endpoints.
type AdminHandler struct {
	BaseHandler
	identity   services.IdentityService
	evaluation services.EvaluationService
}

func NewAdminHandler(identity services.IdentityService, evaluation services.EvaluationService, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: NewBaseHandler(logger),
		identity:    identity,
		evaluation:  evaluation,
	}
}

// Me returns the caller's resolved role, including whether the answer came
// from the degraded fallback roster.
func (h *AdminHandler) Me(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	resolution, err := h.identity.Resolve(c.Request.Context(), userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to resolve role")
		return
	}

	c.JSON(http.StatusOK, resolution)
}

// ListAdmins returns the full roster
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	admins, err := h.identity.ListAdmins(c.Request.Context(), userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to list admins")
		return
	}

	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

// AddAdmin enrolls an email on the roster
func (h *AdminHandler) AddAdmin(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	var req services.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	admin, err := h.identity.AddAdmin(c.Request.Context(), &req, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to add admin")
		return
	}

	c.JSON(http.StatusCreated, admin)
}

// UpdateAdminStatus activates or deactivates a roster entry
func (h *AdminHandler) UpdateAdminStatus(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	id, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateAdminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	admin, err := h.identity.UpdateAdminStatus(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to update admin status")
		return
	}

	c.JSON(http.StatusOK, admin)
}

// UpdateAdminRole changes a roster entry's role
func (h *AdminHandler) UpdateAdminRole(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	id, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateAdminRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	admin, err := h.identity.UpdateAdminRole(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to update admin role")
		return
	}

	c.JSON(http.StatusOK, admin)
}

// ResyncRatings rebuilds every professor's stored rating
func (h *AdminHandler) ResyncRatings(c *gin.Context) {
	report, err := h.evaluation.ResyncAllRatings(c.Request.Context())
	if err != nil {
		h.RespondServiceError(c, err, "Failed to resync ratings")
		return
	}

	c.JSON(http.StatusOK, report)
}
