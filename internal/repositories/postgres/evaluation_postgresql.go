package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
)

// EvaluationPostgreSQL implements EvaluationRepository. Evaluations are
// write-once per (professor, user) pair; the unique index is the source of
// truth for that rule and duplicate inserts surface as ErrDuplicateKey.
type EvaluationPostgreSQL struct {
	db *gorm.DB
}

func NewEvaluationPostgreSQL(db *gorm.DB) repositories.EvaluationRepository {
	return &EvaluationPostgreSQL{db: db}
}

func (r *EvaluationPostgreSQL) Create(ctx context.Context, evaluation *models.Evaluation) error {
	evaluation.Average = evaluation.ComputeAverage()

	if err := r.db.WithContext(ctx).Create(evaluation).Error; err != nil {
		if repositories.IsDuplicateError(err) {
			return fmt.Errorf("evaluation for professor %d by user already exists: %w",
				evaluation.ProfessorID, repositories.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

func (r *EvaluationPostgreSQL) AveragesByProfessor(ctx context.Context, professorID uint) ([]float64, error) {
	var averages []float64
	err := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("professor_id = ?", professorID).
		Pluck("average", &averages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load averages for professor %d: %w", professorID, err)
	}
	return averages, nil
}

func (r *EvaluationPostgreSQL) ListByProfessor(ctx context.Context, professorID uint) ([]*models.Evaluation, error) {
	var evaluations []*models.Evaluation
	err := r.db.WithContext(ctx).
		Where("professor_id = ?", professorID).
		Order("created_at DESC").
		Find(&evaluations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations for professor %d: %w", professorID, err)
	}
	return evaluations, nil
}

func (r *EvaluationPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.Evaluation, error) {
	var evaluations []*models.Evaluation
	err := r.db.WithContext(ctx).
		Preload("Professor").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&evaluations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations for user: %w", err)
	}
	return evaluations, nil
}

func (r *EvaluationPostgreSQL) Exists(ctx context.Context, professorID uint, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("professor_id = ? AND user_id = ?", professorID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check evaluation existence: %w", err)
	}
	return count > 0, nil
}

func (r *EvaluationPostgreSQL) EvaluatedProfessorIDs(ctx context.Context, userID string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("user_id = ?", userID).
		Pluck("professor_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluated professor ids: %w", err)
	}
	return ids, nil
}

// ===== COMMENTS =====

type CommentPostgreSQL struct {
	db *gorm.DB
}

func NewCommentPostgreSQL(db *gorm.DB) repositories.CommentRepository {
	return &CommentPostgreSQL{db: db}
}

func (r *CommentPostgreSQL) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *CommentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment %d: %w", id, err)
	}
	return &comment, nil
}

func (r *CommentPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("Professor").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for user: %w", err)
	}
	return comments, nil
}

func (r *CommentPostgreSQL) ListWithProfessors(ctx context.Context) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("Professor").
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// ===== COMMENT LIKES =====

// CommentLikePostgreSQL stores one row per (comment, user) like. The toggle
// semantics live in the service; this layer only reports the duplicate.
type CommentLikePostgreSQL struct {
	db *gorm.DB
}

func NewCommentLikePostgreSQL(db *gorm.DB) repositories.CommentLikeRepository {
	return &CommentLikePostgreSQL{db: db}
}

func (r *CommentLikePostgreSQL) Create(ctx context.Context, like *models.CommentLike) error {
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		if repositories.IsDuplicateError(err) {
			return repositories.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create comment like: %w", err)
	}
	return nil
}

func (r *CommentLikePostgreSQL) Delete(ctx context.Context, commentID uint, userID string) error {
	result := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&models.CommentLike{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete comment like: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *CommentLikePostgreSQL) Exists(ctx context.Context, commentID uint, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommentLike{}).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check comment like existence: %w", err)
	}
	return count > 0, nil
}

func (r *CommentLikePostgreSQL) CountByComments(ctx context.Context, commentIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(commentIDs))
	if len(commentIDs) == 0 {
		return counts, nil
	}

	type likeCount struct {
		CommentID uint
		Total     int
	}
	var rows []likeCount
	err := r.db.WithContext(ctx).
		Model(&models.CommentLike{}).
		Select("comment_id, COUNT(*) as total").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count comment likes: %w", err)
	}

	for _, row := range rows {
		counts[row.CommentID] = row.Total
	}
	return counts, nil
}

func (r *CommentLikePostgreSQL) LikedSet(ctx context.Context, commentIDs []uint, userID string) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(commentIDs))
	if len(commentIDs) == 0 || userID == "" {
		return liked, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.CommentLike{}).
		Where("comment_id IN ? AND user_id = ?", commentIDs, userID).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load liked comments: %w", err)
	}

	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
