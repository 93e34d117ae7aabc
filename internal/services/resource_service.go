package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/events"
	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
	"github.com/evalua-t/evaluation-service/internal/storage"
	"github.com/evalua-t/evaluation-service/internal/validator"
)

const downloadURLExpiry = 15 * time.Minute

type resourceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	identity  IdentityService
	publisher events.EventPublisher
	blobs     storage.BlobStore
}

func NewResourceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, identity IdentityService, publisher events.EventPublisher, blobs storage.BlobStore) ResourceService {
	return &resourceService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		identity:  identity,
		publisher: publisher,
		blobs:     blobs,
	}
}

// ===== SUBMISSION AND VOTING =====

func (s *resourceService) Submit(ctx context.Context, req *SubmitResourceRequest, userID string) (*models.Resource, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	if errs := s.validator.GetBusinessValidator().ValidateResourceSubmit(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %w", errs)
	}

	if _, err := s.repo.Professor().GetByID(ctx, req.ProfessorID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfessorNotFound
		}
		return nil, fmt.Errorf("failed to load professor: %w", err)
	}

	storagePath := req.StoragePath
	if storagePath == "" {
		storagePath = fmt.Sprintf("recursos-pro/%d_%s", time.Now().Unix(), req.FileName)
	}

	resource := &models.Resource{
		ProfessorID:    req.ProfessorID,
		UploaderID:     userID,
		FileName:       req.FileName,
		StoragePath:    storagePath,
		Type:           req.Type,
		AcademicPeriod: req.AcademicPeriod,
	}

	if err := s.repo.Resource().Create(ctx, resource); err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	s.publishEvent(ctx, events.ResourceSubmitted, map[string]interface{}{
		"resource_id":  resource.ID,
		"professor_id": resource.ProfessorID,
		"type":         resource.Type,
	})

	s.logger.InfoContext(ctx, "Resource submitted for review",
		"resource_id", resource.ID,
		"professor_id", resource.ProfessorID)

	return resource, nil
}

// CastVote records a usefulness vote. Voting is reserved for subscribers
// and only approved resources accept votes; the entitlement check runs
// before any state is touched.
func (s *resourceService) CastVote(ctx context.Context, resourceID uint, req *VoteRequest, userID string) (*ResourceResponse, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	isPro, err := s.repo.Profile().IsPro(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check entitlement: %w", err)
	}
	if !isPro {
		return nil, ErrNotEntitled
	}

	resource, err := s.repo.Resource().GetByID(ctx, resourceID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to load resource: %w", err)
	}

	if resource.Status != models.ResourceApproved {
		return nil, ErrResourceNotVotable
	}

	positive := req.Vote == "up"
	if err := s.repo.Resource().IncrementVote(ctx, resourceID, positive); err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	resource, err = s.repo.Resource().GetByID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload resource: %w", err)
	}
	decorateResource(resource)

	s.publishEvent(ctx, events.ResourceVoteCast, map[string]interface{}{
		"resource_id": resourceID,
		"positive":    positive,
	})

	return &ResourceResponse{Resource: resource}, nil
}

// DownloadURL returns a time-limited link to the stored file. Unreviewed
// and rejected files stay reachable only by their uploader and admins.
func (s *resourceService) DownloadURL(ctx context.Context, resourceID uint, userID string) (string, error) {
	if userID == "" {
		return "", ErrNotAuthenticated
	}

	resource, err := s.repo.Resource().GetByID(ctx, resourceID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return "", ErrResourceNotFound
		}
		return "", fmt.Errorf("failed to load resource: %w", err)
	}

	if resource.Status != models.ResourceApproved && resource.UploaderID != userID {
		isAdmin, err := s.identity.IsAdmin(ctx, userID)
		if err != nil {
			return "", err
		}
		if !isAdmin {
			return "", NewPermissionError(userID, resourceID, "resource", "download", "resource is not approved")
		}
	}

	if s.blobs == nil {
		return "", fmt.Errorf("blob store is not configured")
	}

	url, err := s.blobs.PresignedURL(resource.StoragePath, downloadURLExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign download url: %w", err)
	}
	return url, nil
}

// ===== LISTINGS =====

func (s *resourceService) ListApprovedByProfessor(ctx context.Context, professorID uint) ([]*ResourceResponse, error) {
	resources, err := s.repo.Resource().ListApprovedByProfessor(ctx, professorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return toResourceResponses(resources), nil
}

func (s *resourceService) ListMine(ctx context.Context, userID string) ([]*ResourceResponse, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	resources, err := s.repo.Resource().ListByUploader(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list own resources: %w", err)
	}
	return toResourceResponses(resources), nil
}

func (s *resourceService) MyContribution(ctx context.Context, userID string) (*repositories.UploaderStats, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.repo.Resource().UploaderStats(ctx, userID)
}

// ===== MODERATION =====

func (s *resourceService) List(ctx context.Context, filters repositories.ResourceFilters, actorID string) ([]*ResourceResponse, error) {
	if err := s.identity.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return nil, err
	}

	resources, err := s.repo.Resource().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return toResourceResponses(resources), nil
}

// Review moves one resource to approved or rejected. Re-reviewing an
// already reviewed resource is allowed; the newest decision wins.
func (s *resourceService) Review(ctx context.Context, resourceID uint, req *ReviewResourceRequest, actorID string) (*models.Resource, error) {
	if err := s.identity.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	resource, err := s.repo.Resource().GetByID(ctx, resourceID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to load resource: %w", err)
	}

	affected, err := s.repo.Resource().UpdateStatus(ctx, []uint{resourceID}, req.Status, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update resource status: %w", err)
	}
	if affected == 0 {
		return nil, ErrResourceNotFound
	}

	resource, err = s.repo.Resource().GetByID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload resource: %w", err)
	}

	s.publishEvent(ctx, events.ResourceReviewed, map[string]interface{}{
		"resource_id": resourceID,
		"status":      req.Status,
		"reviewer_id": actorID,
	})

	s.logger.InfoContext(ctx, "Resource reviewed",
		"resource_id", resourceID,
		"status", req.Status,
		"reviewer_id", actorID)

	return resource, nil
}

func (s *resourceService) BatchReview(ctx context.Context, req *BatchReviewRequest, actorID string) (int64, error) {
	if err := s.identity.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return 0, err
	}

	if err := s.validator.Validate(req); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	affected, err := s.repo.Resource().UpdateStatus(ctx, req.IDs, req.Status, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to batch review resources: %w", err)
	}

	s.publishEvent(ctx, events.ResourceReviewed, map[string]interface{}{
		"resource_ids": req.IDs,
		"status":       req.Status,
		"reviewer_id":  actorID,
		"affected":     affected,
	})

	s.logger.InfoContext(ctx, "Resources batch reviewed",
		"requested", len(req.IDs),
		"affected", affected,
		"status", req.Status,
		"reviewer_id", actorID)

	return affected, nil
}

// Purge deletes the database row and then removes the stored file. The row
// is authoritative: a failed blob delete is logged and left for storage
// cleanup, never surfaced as a purge failure.
func (s *resourceService) Purge(ctx context.Context, resourceID uint, actorID string) error {
	if err := s.identity.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return err
	}

	resource, err := s.repo.Resource().GetByID(ctx, resourceID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("failed to load resource: %w", err)
	}

	if err := s.repo.Resource().Delete(ctx, resourceID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("failed to delete resource: %w", err)
	}

	if s.blobs != nil && resource.StoragePath != "" {
		if err := s.blobs.Remove(ctx, resource.StoragePath); err != nil {
			s.logger.WarnContext(ctx, "Failed to remove resource blob, leaving orphan",
				"resource_id", resourceID,
				"storage_path", resource.StoragePath,
				"error", err)
		}
	}

	s.logger.InfoContext(ctx, "Resource purged",
		"resource_id", resourceID,
		"actor_id", actorID)

	return nil
}

func (s *resourceService) AdminStats(ctx context.Context, actorID string) (*repositories.ResourceAdminStats, error) {
	if err := s.identity.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.Resource().AdminStats(ctx)
}

func (s *resourceService) TopContributors(ctx context.Context, limit int, actorID string) ([]*repositories.TopContributor, error) {
	if err := s.identity.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.Resource().TopContributors(ctx, limit)
}

func (s *resourceService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", eventType,
			"error", err)
	}
}

// ===== DISPLAY RATING =====

// decorateResource fills the computed rating fields. The displayed rating
// maps the positive-vote share onto a 0-5 scale; with no votes it stays at
// zero and the count tells the two cases apart.
func decorateResource(r *models.Resource) {
	total := r.VotesPositive + r.VotesNegative
	r.RatingCount = total
	if total == 0 {
		r.DisplayRating = 0
		return
	}
	r.DisplayRating = models.RoundRating(float64(r.VotesPositive) / float64(total) * 5)
}

func toResourceResponses(resources []*models.Resource) []*ResourceResponse {
	out := make([]*ResourceResponse, 0, len(resources))
	for _, r := range resources {
		decorateResource(r)
		out = append(out, &ResourceResponse{Resource: r})
	}
	return out
}
