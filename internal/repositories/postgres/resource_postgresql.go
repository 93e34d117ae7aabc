package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/cache"
	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
)

// ResourcePostgreSQL implements ResourceRepository. Status transitions and
// vote counters are always single UPDATE statements so concurrent reviews
// and votes cannot lose writes.
type ResourcePostgreSQL struct {
	db      *gorm.DB
	cache   *cache.CacheHelper
	stats   *cache.CacheHelper
	helpers *SharedHelpers
}

func NewResourcePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ResourceRepository {
	return &ResourcePostgreSQL{
		db:      db,
		cache:   cache.NewCacheHelper(redisClient, cache.ResourceCacheConfig.Prefix),
		stats:   cache.NewCacheHelper(redisClient, cache.StatsCacheConfig.Prefix),
		helpers: NewSharedHelpers(db),
	}
}

func (r *ResourcePostgreSQL) Create(ctx context.Context, resource *models.Resource) error {
	resource.Status = models.ResourcePending
	resource.VotesPositive = 0
	resource.VotesNegative = 0
	resource.ReviewedAt = nil

	if err := r.db.WithContext(ctx).Create(resource).Error; err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	r.invalidate(ctx, resource.ProfessorID)
	return nil
}

func (r *ResourcePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Resource, error) {
	var resource models.Resource
	if err := r.db.WithContext(ctx).First(&resource, id).Error; err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resource %d: %w", id, err)
	}
	return &resource, nil
}

func (r *ResourcePostgreSQL) List(ctx context.Context, filters repositories.ResourceFilters) ([]*models.Resource, error) {
	query := r.db.WithContext(ctx).Model(&models.Resource{}).Preload("Professor")
	query = r.helpers.ApplyResourceFilters(query, filters)
	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var resources []*models.Resource
	if err := query.Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

func (r *ResourcePostgreSQL) ListApprovedByProfessor(ctx context.Context, professorID uint) ([]*models.Resource, error) {
	var resources []*models.Resource

	cacheKey := fmt.Sprintf("professor:%d:approved", professorID)
	err := r.cache.CacheOrExecute(ctx, cacheKey, &resources, cache.ResourceCacheConfig.TTL, func() (interface{}, error) {
		var list []*models.Resource
		err := r.db.WithContext(ctx).
			Where("professor_id = ? AND status = ?", professorID, models.ResourceApproved).
			Order("created_at DESC").
			Find(&list).Error
		if err != nil {
			return nil, err
		}
		return list, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list approved resources for professor %d: %w", professorID, err)
	}

	return resources, nil
}

func (r *ResourcePostgreSQL) ListByUploader(ctx context.Context, uploaderID string) ([]*models.Resource, error) {
	var resources []*models.Resource
	err := r.db.WithContext(ctx).
		Preload("Professor").
		Where("uploader_id = ?", uploaderID).
		Order("created_at DESC").
		Find(&resources).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list resources for uploader: %w", err)
	}
	return resources, nil
}

func (r *ResourcePostgreSQL) UpdateStatus(ctx context.Context, ids []uint, status models.ResourceStatus, reviewedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_at": reviewedAt,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update resource status: %w", result.Error)
	}

	_ = r.cache.InvalidatePattern(ctx, "professor:*")
	_ = r.stats.InvalidatePattern(ctx, "resources:*")
	return result.RowsAffected, nil
}

func (r *ResourcePostgreSQL) IncrementVote(ctx context.Context, id uint, positive bool) error {
	column := "votes_negative"
	if positive {
		column = "votes_positive"
	}

	result := r.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment vote for resource %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ResourcePostgreSQL) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Resource{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete resource %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	_ = r.cache.InvalidatePattern(ctx, "professor:*")
	_ = r.stats.InvalidatePattern(ctx, "resources:*")
	return nil
}

func (r *ResourcePostgreSQL) AdminStats(ctx context.Context) (*repositories.ResourceAdminStats, error) {
	var stats repositories.ResourceAdminStats

	err := r.stats.CacheOrExecute(ctx, "resources:admin", &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var s repositories.ResourceAdminStats

		type statusCount struct {
			Status models.ResourceStatus
			Total  int
		}
		var rows []statusCount
		err := r.db.WithContext(ctx).
			Model(&models.Resource{}).
			Select("status, COUNT(*) as total").
			Group("status").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}

		for _, row := range rows {
			s.Total += row.Total
			switch row.Status {
			case models.ResourcePending:
				s.Pending = row.Total
			case models.ResourceApproved:
				s.Approved = row.Total
			case models.ResourceRejected:
				s.Rejected = row.Total
			}
		}

		var uploaders int64
		err = r.db.WithContext(ctx).
			Model(&models.Resource{}).
			Distinct("uploader_id").
			Count(&uploaders).Error
		if err != nil {
			return nil, err
		}
		s.ActiveUploaders = int(uploaders)

		return &s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute admin resource stats: %w", err)
	}

	return &stats, nil
}

// UploaderStats aggregates one user's contribution record. Points are one
// hundred per approved resource.
func (r *ResourcePostgreSQL) UploaderStats(ctx context.Context, uploaderID string) (*repositories.UploaderStats, error) {
	var stats repositories.UploaderStats

	var uploaded int64
	err := r.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where("uploader_id = ?", uploaderID).
		Count(&uploaded).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count uploads: %w", err)
	}

	var approved int64
	err = r.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where("uploader_id = ? AND status = ?", uploaderID, models.ResourceApproved).
		Count(&approved).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count approved uploads: %w", err)
	}

	stats.UploadedResources = int(uploaded)
	stats.ApprovedResources = int(approved)
	stats.Points = int(approved) * 100
	return &stats, nil
}

// TopContributors ranks uploaders by approved resource count, one grouped
// query over the resource table.
func (r *ResourcePostgreSQL) TopContributors(ctx context.Context, limit int) ([]*repositories.TopContributor, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []*repositories.TopContributor
	err := r.db.WithContext(ctx).
		Model(&models.Resource{}).
		Select("uploader_id, COUNT(*) AS approved_resources, COUNT(*) * 100 AS points").
		Where("status = ?", models.ResourceApproved).
		Group("uploader_id").
		Order("approved_resources DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank contributors: %w", err)
	}
	return rows, nil
}

func (r *ResourcePostgreSQL) invalidate(ctx context.Context, professorID uint) {
	_ = r.cache.Delete(ctx, fmt.Sprintf("professor:%d:approved", professorID))
	_ = r.stats.InvalidatePattern(ctx, "resources:*")
}

// ===== PROFILES =====

type ProfilePostgreSQL struct {
	db *gorm.DB
}

func NewProfilePostgreSQL(db *gorm.DB) repositories.ProfileRepository {
	return &ProfilePostgreSQL{db: db}
}

func (r *ProfilePostgreSQL) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// IsPro treats a missing profile as not entitled.
func (r *ProfilePostgreSQL) IsPro(ctx context.Context, userID string) (bool, error) {
	profile, err := r.GetByUserID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return profile.IsPro, nil
}
