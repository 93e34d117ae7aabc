package models

import (
	"time"
)

type ResourceStatus string

const (
	ResourcePending  ResourceStatus = "pending"
	ResourceApproved ResourceStatus = "approved"
	ResourceRejected ResourceStatus = "rejected"
)

type ResourceType string

const (
	ResourceNotes    ResourceType = "notes"
	ResourceExam     ResourceType = "exam"
	ResourceGuide    ResourceType = "guide"
	ResourceExercise ResourceType = "exercise"
)

// Resource is a user-submitted study file attached to a professor. It is
// created in pending status and moves to approved or rejected through an
// explicit admin review. Vote counters are mutated only through the
// repository's atomic increment, never read-modify-write.
type Resource struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ProfessorID uint   `json:"professor_id" gorm:"not null;index"`
	UploaderID  string `json:"uploader_id" gorm:"not null;size:255;index"`

	FileName       string         `json:"file_name" gorm:"not null;size:300" validate:"required,max=300"`
	StoragePath    string         `json:"storage_path" gorm:"not null;size:500"`
	Type           ResourceType   `json:"type" gorm:"not null;size:30" validate:"required,oneof=notes exam guide exercise"`
	AcademicPeriod string         `json:"academic_period" gorm:"size:30" validate:"omitempty,max=30"`
	Status         ResourceStatus `json:"status" gorm:"not null;default:pending;index"`

	VotesPositive int `json:"votes_positive" gorm:"not null;default:0"`
	VotesNegative int `json:"votes_negative" gorm:"not null;default:0"`

	ReviewedAt *time.Time `json:"reviewed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Professor *Professor `json:"professor,omitempty" gorm:"foreignKey:ProfessorID"`

	// Computed fields (not stored)
	DisplayRating float64 `json:"display_rating" gorm:"-"`
	RatingCount   int     `json:"rating_count" gorm:"-"`
}

func (Resource) TableName() string {
	return "resources"
}

// Profile carries the subscription entitlement for a user. is_pro gates
// resource voting.
type Profile struct {
	UserID string `json:"user_id" gorm:"primaryKey;size:255"`
	IsPro  bool   `json:"is_pro" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
