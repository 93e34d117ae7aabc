package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalua-t/evaluation-service/internal/config"
	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
	"github.com/evalua-t/evaluation-service/internal/services"
	"github.com/evalua-t/evaluation-service/internal/utils"
)

// HandlerManager holds all HTTP handlers and the auth middleware.
type HandlerManager struct {
	professorHandler  *ProfessorHandler
	engagementHandler *EngagementHandler
	resourceHandler   *ResourceHandler
	adminHandler      *AdminHandler
	authMiddleware    *CasdoorAuthMiddleware

	serviceManager services.ServiceManager
	logger         utils.Logger
}

// NewHandlerManager wires handlers to the service layer
func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		professorHandler:  NewProfessorHandler(serviceManager.Evaluation(), serviceManager.Engagement(), logger),
		engagementHandler: NewEngagementHandler(serviceManager.Engagement(), logger),
		resourceHandler:   NewResourceHandler(serviceManager.Resource(), logger),
		adminHandler:      NewAdminHandler(serviceManager.Identity(), serviceManager.Evaluation(), logger),
		authMiddleware:    NewCasdoorAuthMiddleware(casdoorConfig, userRepo, serviceManager.Identity()),
		serviceManager:    serviceManager,
		logger:            logger,
	}
}

// SetupRoutes registers all API routes on the router
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")

	// ===== PUBLIC ROUTES (optional auth enriches responses) =====
	professors := v1.Group("/professors")
	professors.Use(hm.authMiddleware.OptionalAuthMiddleware())
	{
		professors.GET("", hm.professorHandler.ListProfessors)
		professors.GET("/search", hm.professorHandler.SearchProfessors)
		professors.GET("/top", hm.professorHandler.ListTopRated)
		professors.GET("/random-unevaluated", hm.professorHandler.PickUnevaluated)
		professors.GET("/:id", hm.professorHandler.GetProfessor)
		professors.GET("/:id/resources", hm.resourceHandler.ListByProfessor)
	}

	// ===== AUTHENTICATED ROUTES =====
	auth := v1.Group("")
	auth.Use(hm.authMiddleware.AuthMiddleware())
	{
		auth.POST("/professors",
			hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin),
			hm.professorHandler.CreateProfessor)
		auth.GET("/professors/:id/evaluated", hm.professorHandler.HasEvaluated)

		auth.POST("/evaluations", hm.professorHandler.SubmitEvaluation)
		auth.GET("/evaluations/mine", hm.professorHandler.ListMyEvaluations)

		auth.POST("/comments/:id/like", hm.engagementHandler.ToggleLike)
		auth.GET("/comments/mine", hm.engagementHandler.ListMyComments)

		auth.POST("/resources", hm.resourceHandler.Submit)
		auth.GET("/resources/mine", hm.resourceHandler.ListMine)
		auth.GET("/resources/mine/stats", hm.resourceHandler.MyContribution)
		auth.POST("/resources/:id/vote", hm.resourceHandler.CastVote)
		auth.GET("/resources/:id/download", hm.resourceHandler.Download)

		auth.GET("/me/role", hm.adminHandler.Me)
	}

	// ===== ADMIN ROUTES =====
	admin := v1.Group("/admin")
	admin.Use(hm.authMiddleware.AuthMiddleware())
	admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
	{
		admin.GET("/resources", hm.resourceHandler.List)
		admin.PUT("/resources/:id/review", hm.resourceHandler.Review)
		admin.PUT("/resources/review", hm.resourceHandler.BatchReview)
		admin.DELETE("/resources/:id", hm.resourceHandler.Purge)
		admin.GET("/resources/stats", hm.resourceHandler.AdminStats)
		admin.GET("/resources/top-contributors", hm.resourceHandler.TopContributors)
		admin.GET("/resources/export", hm.resourceHandler.ExportReport)

		admin.POST("/ratings/resync", hm.adminHandler.ResyncRatings)

		// Roster management requires superadmin.
		roster := admin.Group("/admins")
		roster.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleSuperAdmin))
		{
			roster.GET("", hm.adminHandler.ListAdmins)
			roster.POST("", hm.adminHandler.AddAdmin)
			roster.PUT("/:id/status", hm.adminHandler.UpdateAdminStatus)
			roster.PUT("/:id/role", hm.adminHandler.UpdateAdminRole)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "evaluation-service",
	})
}
