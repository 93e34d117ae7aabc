package validator

import (
	"github.com/evalua-t/evaluation-service/internal/models"
)

// EvaluationSubmitRequest carries the three rubric scores plus an optional
// free-text comment submitted alongside them.
type EvaluationSubmitRequest struct {
	ProfessorID uint `json:"professor_id" validate:"required"`

	Domain      int `json:"domain" validate:"required,score_range"`
	Methodology int `json:"methodology" validate:"required,score_range"`
	Punctuality int `json:"punctuality" validate:"required,score_range"`

	CommentText string `json:"comment_text" validate:"omitempty,min=1,max=2000"`
	CommentDate string `json:"comment_date" validate:"omitempty,evaluation_date"`
}

// ProfessorCreateRequest registers a professor in the directory.
type ProfessorCreateRequest struct {
	Name    string   `json:"name" validate:"required,min=2,max=200"`
	Courses []string `json:"courses" validate:"omitempty,max=30,dive,min=1,max=120"`
	Avatar  string   `json:"avatar" validate:"omitempty,url,max=500"`
}

// ResourceSubmitRequest registers an uploaded study file for review.
type ResourceSubmitRequest struct {
	ProfessorID    uint                `json:"professor_id" validate:"required"`
	FileName       string              `json:"file_name" validate:"required,min=1,max=300"`
	StoragePath    string              `json:"storage_path" validate:"required,max=500"`
	Type           models.ResourceType `json:"type" validate:"required,oneof=notes exam guide exercise"`
	AcademicPeriod string              `json:"academic_period" validate:"omitempty,max=30"`
}

// ResourceVoteRequest casts a usefulness vote on an approved resource.
type ResourceVoteRequest struct {
	Vote string `json:"vote" validate:"required,oneof=up down"`
}

// ResourceReviewRequest moves one resource to a reviewed status.
type ResourceReviewRequest struct {
	Status models.ResourceStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// ResourceBatchReviewRequest applies one status to many resources at once.
type ResourceBatchReviewRequest struct {
	IDs    []uint                `json:"ids" validate:"required,min=1,max=200"`
	Status models.ResourceStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// AdminCreateRequest adds an email to the privileged-user roster.
type AdminCreateRequest struct {
	Email string          `json:"email" validate:"required,email,max=255"`
	Role  models.UserRole `json:"role" validate:"required,oneof=admin superadmin"`
}

// AdminStatusUpdateRequest activates or deactivates a roster entry.
type AdminStatusUpdateRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// AdminRoleUpdateRequest changes the role of a roster entry.
type AdminRoleUpdateRequest struct {
	Role models.UserRole `json:"role" validate:"required,oneof=admin superadmin"`
}
