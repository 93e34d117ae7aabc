package models

import (
	"time"
)

// AdminUser is a row in the authoritative privileged-user roster. UserID is
// the linked account identifier when the email could be resolved at insert
// time; it stays nil otherwise and is backfilled out-of-band.
type AdminUser struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`
	UserID   *string  `json:"user_id" gorm:"size:255"`
	Role     UserRole `json:"role" gorm:"not null;size:20" validate:"required,oneof=admin superadmin"`
	IsActive bool     `json:"is_active" gorm:"not null;default:true"`

	CreatedBy string `json:"created_by" gorm:"not null;size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}
