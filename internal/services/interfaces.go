package services

import (
	"context"
	"time"

	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
	"github.com/evalua-t/evaluation-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type SubmitEvaluationRequest = validator.EvaluationSubmitRequest
type CreateProfessorRequest = validator.ProfessorCreateRequest
type SubmitResourceRequest = validator.ResourceSubmitRequest
type VoteRequest = validator.ResourceVoteRequest
type ReviewResourceRequest = validator.ResourceReviewRequest
type BatchReviewRequest = validator.ResourceBatchReviewRequest
type CreateAdminRequest = validator.AdminCreateRequest
type UpdateAdminStatusRequest = validator.AdminStatusUpdateRequest
type UpdateAdminRoleRequest = validator.AdminRoleUpdateRequest

type ProfessorResponse struct {
	*models.Professor
	HasEvaluated bool `json:"has_evaluated"`
}

type SubmitEvaluationResponse struct {
	Evaluation *models.Evaluation `json:"evaluation"`
	Comment    *models.Comment    `json:"comment,omitempty"`
	NewRating  float64            `json:"new_rating"`
}

type ToggleLikeResponse struct {
	CommentID  uint `json:"comment_id"`
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

type ResourceResponse struct {
	*models.Resource
}

// PickUnevaluatedResponse carries the random pick, or a message when the
// caller has no candidates left.
type PickUnevaluatedResponse struct {
	Professor   *models.Professor `json:"professor,omitempty"`
	CanEvaluate bool              `json:"can_evaluate"`
	Message     string            `json:"message,omitempty"`
}

// ResyncReport summarizes a full rating rebuild pass.
type ResyncReport struct {
	Professors int           `json:"professors"`
	Updated    int           `json:"updated"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// RoleSource names where a role resolution came from.
type RoleSource string

const (
	SourceRoster   RoleSource = "roster"
	SourceFallback RoleSource = "fallback"
)

// RoleResolution is the outcome of resolving a caller's effective role.
// Degraded is true when the roster was unreachable and the static fallback
// roster answered instead.
type RoleResolution struct {
	UserID   string          `json:"user_id"`
	Email    string          `json:"email"`
	Role     models.UserRole `json:"role"`
	Source   RoleSource      `json:"source"`
	Degraded bool            `json:"degraded"`
}

// ===== SERVICE INTERFACES =====

type EvaluationService interface {
	// Professor directory
	CreateProfessor(ctx context.Context, req *CreateProfessorRequest, actorID string) (*models.Professor, error)
	GetProfessor(ctx context.Context, id uint, userID string) (*ProfessorResponse, error)
	ListProfessors(ctx context.Context, userID string) ([]*ProfessorResponse, error)
	ListTopRated(ctx context.Context, limit int) ([]*models.Professor, error)
	SearchProfessors(ctx context.Context, query string) ([]*models.Professor, error)

	// Evaluations
	SubmitEvaluation(ctx context.Context, req *SubmitEvaluationRequest, userID string) (*SubmitEvaluationResponse, error)
	HasEvaluated(ctx context.Context, professorID uint, userID string) (bool, error)
	PickUnevaluated(ctx context.Context, userID string) (*PickUnevaluatedResponse, error)
	ListMyEvaluations(ctx context.Context, userID string) ([]*models.Evaluation, error)

	// Rating maintenance
	RecomputeRating(ctx context.Context, professorID uint) (float64, error)
	ResyncAllRatings(ctx context.Context) (*ResyncReport, error)
}

type EngagementService interface {
	ToggleLike(ctx context.Context, commentID uint, userID string) (*ToggleLikeResponse, error)
	DecorateComments(ctx context.Context, comments []*models.Comment, userID string) error
	ListMyComments(ctx context.Context, userID string) ([]*models.Comment, error)
}

type ResourceService interface {
	Submit(ctx context.Context, req *SubmitResourceRequest, userID string) (*models.Resource, error)
	CastVote(ctx context.Context, resourceID uint, req *VoteRequest, userID string) (*ResourceResponse, error)
	DownloadURL(ctx context.Context, resourceID uint, userID string) (string, error)

	// Listings
	ListApprovedByProfessor(ctx context.Context, professorID uint) ([]*ResourceResponse, error)
	ListMine(ctx context.Context, userID string) ([]*ResourceResponse, error)
	MyContribution(ctx context.Context, userID string) (*repositories.UploaderStats, error)

	// Moderation (admin only)
	List(ctx context.Context, filters repositories.ResourceFilters, actorID string) ([]*ResourceResponse, error)
	Review(ctx context.Context, resourceID uint, req *ReviewResourceRequest, actorID string) (*models.Resource, error)
	BatchReview(ctx context.Context, req *BatchReviewRequest, actorID string) (int64, error)
	Purge(ctx context.Context, resourceID uint, actorID string) error
	AdminStats(ctx context.Context, actorID string) (*repositories.ResourceAdminStats, error)
	TopContributors(ctx context.Context, limit int, actorID string) ([]*repositories.TopContributor, error)
	ExportAdminReport(ctx context.Context, actorID string) ([]byte, error)
}

type IdentityService interface {
	// Role resolution
	Resolve(ctx context.Context, userID string) (*RoleResolution, error)
	ResolveByEmail(ctx context.Context, email string) (*RoleResolution, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	IsSuperAdmin(ctx context.Context, userID string) (bool, error)
	RequireRole(ctx context.Context, userID string, required models.UserRole) error

	// Roster management (superadmin only)
	AddAdmin(ctx context.Context, req *CreateAdminRequest, actorID string) (*models.AdminUser, error)
	UpdateAdminStatus(ctx context.Context, id uint, req *UpdateAdminStatusRequest, actorID string) (*models.AdminUser, error)
	UpdateAdminRole(ctx context.Context, id uint, req *UpdateAdminRoleRequest, actorID string) (*models.AdminUser, error)
	ListAdmins(ctx context.Context, actorID string) ([]*models.AdminUser, error)

	// Principal lookup
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// ServiceManager provides access to all services
type ServiceManager interface {
	Evaluation() EvaluationService
	Engagement() EngagementService
	Resource() ResourceService
	Identity() IdentityService

	HealthCheck(ctx context.Context) error
	Close() error
}
