package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/cache"
	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
)

// ProfessorPostgreSQL implements ProfessorRepository with Redis caching on
// the hot read paths. Writes invalidate before returning.
type ProfessorPostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheHelper
}

func NewProfessorPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ProfessorRepository {
	return &ProfessorPostgreSQL{
		db:    db,
		cache: cache.NewCacheHelper(redisClient, cache.ProfessorCacheConfig.Prefix),
	}
}

func (r *ProfessorPostgreSQL) Create(ctx context.Context, professor *models.Professor) error {
	if err := r.db.WithContext(ctx).Create(professor).Error; err != nil {
		if repositories.IsDuplicateError(err) {
			return fmt.Errorf("professor already exists: %w", repositories.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create professor: %w", err)
	}

	r.invalidateListings(ctx)
	return nil
}

func (r *ProfessorPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Professor, error) {
	var professor models.Professor

	cacheKey := fmt.Sprintf("id:%d", id)
	err := r.cache.CacheOrExecute(ctx, cacheKey, &professor, cache.ProfessorCacheConfig.TTL, func() (interface{}, error) {
		var p models.Professor
		if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get professor %d: %w", id, err)
	}

	return &professor, nil
}

// GetByIDWithDetails loads the professor with evaluations and comments,
// newest first. Like counts are layered on by the caller since they depend
// on the requesting user.
func (r *ProfessorPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Professor, error) {
	var professor models.Professor
	err := r.db.WithContext(ctx).
		Preload("Evaluations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&professor, id).Error
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get professor %d with details: %w", id, err)
	}

	professor.EvaluationCount = len(professor.Evaluations)
	return &professor, nil
}

func (r *ProfessorPostgreSQL) List(ctx context.Context) ([]*models.Professor, error) {
	var professors []*models.Professor

	err := r.cache.CacheOrExecute(ctx, "list:all", &professors, cache.ProfessorCacheConfig.TTL, func() (interface{}, error) {
		var list []*models.Professor
		if err := r.db.WithContext(ctx).
			Order("name ASC").
			Find(&list).Error; err != nil {
			return nil, err
		}
		return list, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list professors: %w", err)
	}

	return professors, nil
}

func (r *ProfessorPostgreSQL) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Professor{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list professor ids: %w", err)
	}
	return ids, nil
}

// Search matches against the name and the course list. The courses column
// is jsonb, so it is matched as text.
func (r *ProfessorPostgreSQL) Search(ctx context.Context, query string) ([]*models.Professor, error) {
	var professors []*models.Professor
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("name ILIKE ? OR courses::text ILIKE ?", pattern, pattern).
		Order("rating DESC").
		Find(&professors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search professors: %w", err)
	}
	return professors, nil
}

func (r *ProfessorPostgreSQL) UpdateRating(ctx context.Context, id uint, rating float64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Professor{}).
		Where("id = ?", id).
		Update("rating", rating)
	if result.Error != nil {
		return fmt.Errorf("failed to update rating for professor %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	if err := r.cache.Delete(ctx, fmt.Sprintf("id:%d", id)); err == nil {
		r.invalidateListings(ctx)
	}
	return nil
}

func (r *ProfessorPostgreSQL) invalidateListings(ctx context.Context) {
	_ = r.cache.Delete(ctx, "list:all")
	_ = r.cache.InvalidatePattern(ctx, "top:*")
}
