package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
)

// AdminPostgreSQL implements AdminRepository over the admin_users roster.
// Role resolution reads only active rows; deactivated admins keep their row
// for audit but lose every privilege.
type AdminPostgreSQL struct {
	db *gorm.DB
}

func NewAdminPostgreSQL(db *gorm.DB) repositories.AdminRepository {
	return &AdminPostgreSQL{db: db}
}

func (r *AdminPostgreSQL) Create(ctx context.Context, admin *models.AdminUser) error {
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		if repositories.IsDuplicateError(err) {
			return fmt.Errorf("admin with email already exists: %w", repositories.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (r *AdminPostgreSQL) GetActiveByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		First(&admin).Error
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}
	return &admin, nil
}

func (r *AdminPostgreSQL) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AdminUser{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check admin existence: %w", err)
	}
	return count > 0, nil
}

func (r *AdminPostgreSQL) List(ctx context.Context) ([]*models.AdminUser, error) {
	var admins []*models.AdminUser
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&admins).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

func (r *AdminPostgreSQL) UpdateStatus(ctx context.Context, id uint, isActive bool) (*models.AdminUser, error) {
	return r.update(ctx, id, map[string]interface{}{"is_active": isActive})
}

func (r *AdminPostgreSQL) UpdateRole(ctx context.Context, id uint, role models.UserRole) (*models.AdminUser, error) {
	return r.update(ctx, id, map[string]interface{}{"role": role})
}

func (r *AdminPostgreSQL) update(ctx context.Context, id uint, fields map[string]interface{}) (*models.AdminUser, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AdminUser{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update admin %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, repositories.ErrNotFound
	}

	var admin models.AdminUser
	if err := r.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload admin %d: %w", id, err)
	}
	return &admin, nil
}
