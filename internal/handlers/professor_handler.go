package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/services"
	"github.com/evalua-t/evaluation-service/internal/utils"
)

// ProfessorHandler serves the professor directory and evaluation endpoints.
type ProfessorHandler struct {
	BaseHandler
	evaluation services.EvaluationService
	engagement services.EngagementService
}

func NewProfessorHandler(evaluation services.EvaluationService, engagement services.EngagementService, logger utils.Logger) *ProfessorHandler {
	return &ProfessorHandler{
		BaseHandler: NewBaseHandler(logger),
		evaluation:  evaluation,
		engagement:  engagement,
	}
}

// ListProfessors returns the directory, with per-user evaluation flags when
// the caller is authenticated.
func (h *ProfessorHandler) ListProfessors(c *gin.Context) {
	professors, err := h.evaluation.ListProfessors(c.Request.Context(), h.CurrentUserID(c))
	if err != nil {
		h.RespondServiceError(c, err, "Failed to list professors")
		return
	}

	c.JSON(http.StatusOK, gin.H{"professors": professors})
}

// SearchProfessors searches by name or course
func (h *ProfessorHandler) SearchProfessors(c *gin.Context) {
	professors, err := h.evaluation.SearchProfessors(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.RespondServiceError(c, err, "Failed to search professors")
		return
	}

	c.JSON(http.StatusOK, gin.H{"professors": professors})
}

// ListTopRated returns the highest rated professors
func (h *ProfessorHandler) ListTopRated(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	professors, err := h.evaluation.ListTopRated(c.Request.Context(), limit)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to list top rated professors")
		return
	}

	c.JSON(http.StatusOK, gin.H{"professors": professors})
}

// GetProfessor returns one professor with evaluations and decorated comments
func (h *ProfessorHandler) GetProfessor(c *gin.Context) {
	id, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	userID := h.CurrentUserID(c)
	professor, err := h.evaluation.GetProfessor(c.Request.Context(), id, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to get professor")
		return
	}

	comments := make([]*models.Comment, 0, len(professor.Comments))
	for i := range professor.Comments {
		comments = append(comments, &professor.Comments[i])
	}
	if err := h.engagement.DecorateComments(c.Request.Context(), comments, userID); err != nil {
		h.RespondServiceError(c, err, "Failed to load comment likes")
		return
	}

	// Most liked comments first.
	sort.SliceStable(professor.Comments, func(i, j int) bool {
		return professor.Comments[i].LikesCount > professor.Comments[j].LikesCount
	})

	c.JSON(http.StatusOK, professor)
}

// CreateProfessor registers a professor (admin only)
func (h *ProfessorHandler) CreateProfessor(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	var req services.CreateProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	professor, err := h.evaluation.CreateProfessor(c.Request.Context(), &req, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to create professor")
		return
	}

	c.JSON(http.StatusCreated, professor)
}

// PickUnevaluated returns a random professor the caller has not evaluated.
// Anonymous callers draw from the full directory.
func (h *ProfessorHandler) PickUnevaluated(c *gin.Context) {
	resp, err := h.evaluation.PickUnevaluated(c.Request.Context(), h.CurrentUserID(c))
	if err != nil {
		h.RespondServiceError(c, err, "Failed to pick professor")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HasEvaluated reports whether the caller already evaluated a professor
func (h *ProfessorHandler) HasEvaluated(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	id, ok := h.ParseUintParam(c, "id")
	if !ok {
		return
	}

	evaluated, err := h.evaluation.HasEvaluated(c.Request.Context(), id, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to check evaluation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"has_evaluated": evaluated})
}

// SubmitEvaluation records the caller's evaluation of a professor
func (h *ProfessorHandler) SubmitEvaluation(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	var req services.SubmitEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	result, err := h.evaluation.SubmitEvaluation(c.Request.Context(), &req, userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to submit evaluation")
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListMyEvaluations returns the caller's evaluation history
func (h *ProfessorHandler) ListMyEvaluations(c *gin.Context) {
	userID, ok := h.RequireUserID(c)
	if !ok {
		return
	}

	evaluations, err := h.evaluation.ListMyEvaluations(c.Request.Context(), userID)
	if err != nil {
		h.RespondServiceError(c, err, "Failed to list evaluations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"evaluations": evaluations})
}
