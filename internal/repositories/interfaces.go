package repositories

import (
	"context"
	"time"

	"github.com/evalua-t/evaluation-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ResourceFilters struct {
	Status         *models.ResourceStatus `json:"status"`
	ProfessorID    *uint                  `json:"professor_id"`
	Type           *models.ResourceType   `json:"type"`
	AcademicPeriod *string                `json:"academic_period"`
	FileName       *string                `json:"file_name"`
	DateFrom       *time.Time             `json:"date_from"`
	DateTo         *time.Time             `json:"date_to"`
	Limit          int                    `json:"limit"`
	Offset         int                    `json:"offset"`
	SortBy         string                 `json:"sort_by"`    // "created_at", "reviewed_at", "file_name"
	SortOrder      string                 `json:"sort_order"` // "asc", "desc"
}

type UserFilters struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type ResourceAdminStats struct {
	Total           int `json:"total"`
	Pending         int `json:"pending"`
	Approved        int `json:"approved"`
	Rejected        int `json:"rejected"`
	ActiveUploaders int `json:"active_uploaders"`
}

type UploaderStats struct {
	Points            int `json:"points"`
	UploadedResources int `json:"uploaded_resources"`
	ApprovedResources int `json:"approved_resources"`
}

// TopContributor is one row of the contributor leaderboard, aggregated from
// approved resources.
type TopContributor struct {
	UploaderID        string `json:"uploader_id"`
	ApprovedResources int    `json:"approved_resources"`
	Points            int    `json:"points"`
}

// ===== ENTITY REPOSITORIES =====

type ProfessorRepository interface {
	Create(ctx context.Context, professor *models.Professor) error
	GetByID(ctx context.Context, id uint) (*models.Professor, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Professor, error)
	List(ctx context.Context) ([]*models.Professor, error)
	ListIDs(ctx context.Context) ([]uint, error)
	Search(ctx context.Context, query string) ([]*models.Professor, error)
	UpdateRating(ctx context.Context, id uint, rating float64) error
}

type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	AveragesByProfessor(ctx context.Context, professorID uint) ([]float64, error)
	ListByProfessor(ctx context.Context, professorID uint) ([]*models.Evaluation, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Evaluation, error)
	Exists(ctx context.Context, professorID uint, userID string) (bool, error)
	EvaluatedProfessorIDs(ctx context.Context, userID string) ([]uint, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Comment, error)
	ListWithProfessors(ctx context.Context) ([]*models.Comment, error)
}

type CommentLikeRepository interface {
	// Create returns a duplicate-key error when the (comment, user) pair is
	// already liked; callers treat that as the unlike signal.
	Create(ctx context.Context, like *models.CommentLike) error
	Delete(ctx context.Context, commentID uint, userID string) error
	Exists(ctx context.Context, commentID uint, userID string) (bool, error)
	CountByComments(ctx context.Context, commentIDs []uint) (map[uint]int, error)
	LikedSet(ctx context.Context, commentIDs []uint, userID string) (map[uint]bool, error)
}

type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id uint) (*models.Resource, error)
	List(ctx context.Context, filters ResourceFilters) ([]*models.Resource, error)
	ListApprovedByProfessor(ctx context.Context, professorID uint) ([]*models.Resource, error)
	ListByUploader(ctx context.Context, uploaderID string) ([]*models.Resource, error)
	// UpdateStatus applies the same status to every id in one statement and
	// returns the number of affected rows.
	UpdateStatus(ctx context.Context, ids []uint, status models.ResourceStatus, reviewedAt time.Time) (int64, error)
	// IncrementVote performs a server-side atomic increment of the positive
	// or negative counter.
	IncrementVote(ctx context.Context, id uint, positive bool) error
	Delete(ctx context.Context, id uint) error
	AdminStats(ctx context.Context) (*ResourceAdminStats, error)
	UploaderStats(ctx context.Context, uploaderID string) (*UploaderStats, error)
	// TopContributors ranks uploaders by approved resource count.
	TopContributors(ctx context.Context, limit int) ([]*TopContributor, error)
}

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	IsPro(ctx context.Context, userID string) (bool, error)
}

type AdminRepository interface {
	Create(ctx context.Context, admin *models.AdminUser) error
	GetActiveByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]*models.AdminUser, error)
	UpdateStatus(ctx context.Context, id uint, isActive bool) (*models.AdminUser, error)
	UpdateRole(ctx context.Context, id uint, role models.UserRole) (*models.AdminUser, error)
}

// UserRepository reads principals from the external identity provider.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// LookupAccountID translates an email to an account identifier through a
	// privileged provider call. Returns a not-found error when no account
	// exists for the email.
	LookupAccountID(ctx context.Context, email string) (string, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
}
