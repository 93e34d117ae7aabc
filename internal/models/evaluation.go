package models

import (
	"math"
	"time"
)

// Evaluation is a single user's scoring of a professor. Average is computed
// once at write time from the three sub-scores and stored; it is not
// recomputed on later reads. At most one evaluation exists per
// (professor_id, user_id), enforced by a unique index.
type Evaluation struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ProfessorID uint   `json:"professor_id" gorm:"not null;uniqueIndex:idx_evaluations_professor_user"`
	UserID      string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_evaluations_professor_user"`

	Domain      int     `json:"domain" gorm:"not null" validate:"required,min=1,max=5"`
	Methodology int     `json:"methodology" gorm:"not null" validate:"required,min=1,max=5"`
	Punctuality int     `json:"punctuality" gorm:"not null" validate:"required,min=1,max=5"`
	Average     float64 `json:"average" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Professor *Professor `json:"professor,omitempty" gorm:"foreignKey:ProfessorID"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

// ComputeAverage returns the mean of the three sub-scores rounded to one
// decimal place.
func (e *Evaluation) ComputeAverage() float64 {
	return RoundRating(float64(e.Domain+e.Methodology+e.Punctuality) / 3)
}

// RoundRating rounds a rating value to one decimal place, the precision
// every rating in the system is rendered and stored at.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// Comment is free-text feedback on a professor. It is independent of an
// Evaluation and may exist without one.
type Comment struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ProfessorID uint   `json:"professor_id" gorm:"not null;index"`
	UserID      string `json:"user_id" gorm:"not null;size:255;index"`
	Text        string `json:"text" gorm:"type:text;not null" validate:"required,max=2000"`
	Date        string `json:"date" gorm:"size:10;not null"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Professor *Professor    `json:"professor,omitempty" gorm:"foreignKey:ProfessorID"`
	Likes     []CommentLike `json:"-" gorm:"foreignKey:CommentID"`

	// Computed fields (not stored)
	LikesCount int  `json:"likes_count" gorm:"-"`
	LikedByMe  bool `json:"liked_by_me" gorm:"-"`
}

func (Comment) TableName() string {
	return "comments"
}

// CommentLike marks a comment as liked by a user; existence is the "liked"
// state. Unique per (comment_id, user_id), which the engagement service
// relies on to implement the like/unlike toggle.
type CommentLike struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	CommentID uint   `json:"comment_id" gorm:"not null;uniqueIndex:idx_comment_likes_comment_user"`
	UserID    string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_comment_likes_comment_user"`

	CreatedAt time.Time `json:"created_at"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}
