package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Professor is an evaluable faculty member. Rating is a cached projection
// of the evaluation set and is rebuilt wholesale by the evaluation service;
// it is never the source of truth.
type Professor struct {
	ID      uint                        `json:"id" gorm:"primaryKey"`
	Name    string                      `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Courses datatypes.JSONSlice[string] `json:"courses" gorm:"type:jsonb"`
	Avatar  string                      `json:"avatar" gorm:"size:500"`
	Rating  float64                     `json:"rating" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Evaluations []Evaluation `json:"evaluations,omitempty" gorm:"foreignKey:ProfessorID"`
	Comments    []Comment    `json:"comments,omitempty" gorm:"foreignKey:ProfessorID"`

	// Computed fields (not stored)
	EvaluationCount int `json:"evaluation_count" gorm:"-"`
}

func (Professor) TableName() string {
	return "professors"
}
