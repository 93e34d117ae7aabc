package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/evalua-t/evaluation-service/internal/services"
	"github.com/evalua-t/evaluation-service/internal/utils"
	"github.com/evalua-t/evaluation-service/internal/validator"
)

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// BaseHandler provides shared helpers for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string) {
	utils.FromContext(c, h.logger).Info(msg)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	utils.FromContext(c, h.logger).Error(msg, "error", err)
}

// CurrentUserID returns the authenticated user's ID, or "" when the request
// is anonymous.
func (h *BaseHandler) CurrentUserID(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// RequireUserID aborts with 401 when the request is anonymous.
func (h *BaseHandler) RequireUserID(c *gin.Context) (string, bool) {
	id := h.CurrentUserID(c)
	if id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "authentication required",
		})
		return "", false
	}
	return id, true
}

// ParseUintParam parses a path parameter as an unsigned integer.
func (h *BaseHandler) ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid " + name + " parameter",
		})
		return 0, false
	}
	return uint(value), true
}

// RespondServiceError maps service errors onto HTTP status codes.
func (h *BaseHandler) RespondServiceError(c *gin.Context, err error, fallback string) {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "authentication required",
		})

	case services.IsPermissionError(err):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "insufficient permissions",
		})

	case errors.Is(err, services.ErrNotEntitled):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "an active subscription is required to vote",
		})

	case errors.Is(err, services.ErrProfessorNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrResourceNotFound),
		errors.Is(err, services.ErrAdminNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrAlreadyEvaluated),
		errors.Is(err, services.ErrAdminExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrResourceNotVotable):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "unprocessable",
			Message: err.Error(),
		})

	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "request validation failed",
			Details: validationErrs,
		})

	default:
		h.LogError(c, err, fallback)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: fallback,
		})
	}
}
