package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
)

type engagementService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewEngagementService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) EngagementService {
	return &engagementService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// ToggleLike flips the caller's like on a comment. The insert is attempted
// first and a uniqueness conflict means the like already existed, so it is
// removed instead. The conflict signal makes the toggle safe under
// concurrent double-clicks: two racing requests resolve to insert then
// delete, never to two rows.
func (s *engagementService) ToggleLike(ctx context.Context, commentID uint, userID string) (*ToggleLikeResponse, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	if _, err := s.repo.Comment().GetByID(ctx, commentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}

	liked := true
	err := s.repo.CommentLike().Create(ctx, &models.CommentLike{
		CommentID: commentID,
		UserID:    userID,
	})
	if err != nil {
		if !repositories.IsDuplicateError(err) {
			return nil, fmt.Errorf("failed to like comment: %w", err)
		}

		liked = false
		if err := s.repo.CommentLike().Delete(ctx, commentID, userID); err != nil {
			// The row vanished between conflict and delete; the end state
			// is "not liked", which is what this branch wanted.
			if !repositories.IsNotFoundError(err) {
				return nil, fmt.Errorf("failed to unlike comment: %w", err)
			}
		}
	}

	counts, err := s.repo.CommentLike().CountByComments(ctx, []uint{commentID})
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}

	s.logger.DebugContext(ctx, "Comment like toggled",
		"comment_id", commentID,
		"liked", liked)

	return &ToggleLikeResponse{
		CommentID:  commentID,
		Liked:      liked,
		LikesCount: counts[commentID],
	}, nil
}

// DecorateComments fills the computed like fields on a batch of comments
// with two grouped queries regardless of batch size.
func (s *engagementService) DecorateComments(ctx context.Context, comments []*models.Comment, userID string) error {
	if len(comments) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}

	counts, err := s.repo.CommentLike().CountByComments(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to count likes: %w", err)
	}

	liked := map[uint]bool{}
	if userID != "" {
		liked, err = s.repo.CommentLike().LikedSet(ctx, ids, userID)
		if err != nil {
			return fmt.Errorf("failed to load liked set: %w", err)
		}
	}

	for _, c := range comments {
		c.LikesCount = counts[c.ID]
		c.LikedByMe = liked[c.ID]
	}
	return nil
}

func (s *engagementService) ListMyComments(ctx context.Context, userID string) ([]*models.Comment, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	comments, err := s.repo.Comment().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	if err := s.DecorateComments(ctx, comments, userID); err != nil {
		return nil, err
	}
	return comments, nil
}
