package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/events"
	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
	"github.com/evalua-t/evaluation-service/internal/validator"
)

type evaluationService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	identity  IdentityService
	publisher events.EventPublisher
}

func NewEvaluationService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, identity IdentityService, publisher events.EventPublisher) EvaluationService {
	return &evaluationService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		identity:  identity,
		publisher: publisher,
	}
}

// ===== PROFESSOR DIRECTORY =====

func (s *evaluationService) CreateProfessor(ctx context.Context, req *CreateProfessorRequest, actorID string) (*models.Professor, error) {
	if err := s.identity.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	avatar := req.Avatar
	if avatar == "" {
		avatar = initialsAvatarURL(req.Name)
	}

	professor := &models.Professor{
		Name:    req.Name,
		Courses: datatypes.NewJSONSlice(req.Courses),
		Avatar:  avatar,
		Rating:  0,
	}

	if err := s.repo.Professor().Create(ctx, professor); err != nil {
		return nil, fmt.Errorf("failed to create professor: %w", err)
	}

	s.publishEvent(ctx, events.ProfessorCreated, map[string]interface{}{
		"professor_id": professor.ID,
		"name":         professor.Name,
		"created_by":   actorID,
	})

	s.logger.InfoContext(ctx, "Professor created",
		"professor_id", professor.ID,
		"actor_id", actorID)

	return professor, nil
}

func (s *evaluationService) GetProfessor(ctx context.Context, id uint, userID string) (*ProfessorResponse, error) {
	professor, err := s.repo.Professor().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfessorNotFound
		}
		return nil, fmt.Errorf("failed to get professor: %w", err)
	}

	hasEvaluated := false
	if userID != "" {
		hasEvaluated, err = s.repo.Evaluation().Exists(ctx, id, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check evaluation: %w", err)
		}
	}

	return &ProfessorResponse{
		Professor:    professor,
		HasEvaluated: hasEvaluated,
	}, nil
}

func (s *evaluationService) ListProfessors(ctx context.Context, userID string) ([]*ProfessorResponse, error) {
	professors, err := s.repo.Professor().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list professors: %w", err)
	}

	evaluated := make(map[uint]bool)
	if userID != "" {
		ids, err := s.repo.Evaluation().EvaluatedProfessorIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load evaluated professors: %w", err)
		}
		for _, id := range ids {
			evaluated[id] = true
		}
	}

	responses := make([]*ProfessorResponse, 0, len(professors))
	for _, p := range professors {
		responses = append(responses, &ProfessorResponse{
			Professor:    p,
			HasEvaluated: evaluated[p.ID],
		})
	}
	return responses, nil
}

func (s *evaluationService) ListTopRated(ctx context.Context, limit int) ([]*models.Professor, error) {
	if limit <= 0 {
		limit = 10
	}

	professors, err := s.repo.Professor().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list professors: %w", err)
	}

	// Unrated professors never enter the ranking.
	rated := make([]*models.Professor, 0, len(professors))
	for _, p := range professors {
		if p.Rating > 0 {
			rated = append(rated, p)
		}
	}

	sort.SliceStable(rated, func(i, j int) bool {
		return rated[i].Rating > rated[j].Rating
	})

	if len(rated) > limit {
		rated = rated[:limit]
	}
	return rated, nil
}

func (s *evaluationService) SearchProfessors(ctx context.Context, query string) ([]*models.Professor, error) {
	if query == "" {
		return s.repo.Professor().List(ctx)
	}
	return s.repo.Professor().Search(ctx, query)
}

// ===== EVALUATIONS =====

// SubmitEvaluation stores the evaluation, the optional comment, and the
// recomputed professor rating in one transaction. A failure at any step
// leaves nothing behind, so the stored rating always matches the stored
// evaluation set.
func (s *evaluationService) SubmitEvaluation(ctx context.Context, req *SubmitEvaluationRequest, userID string) (*SubmitEvaluationResponse, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	if errs := s.validator.GetBusinessValidator().ValidateEvaluationSubmit(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %w", errs)
	}

	if _, err := s.repo.Professor().GetByID(ctx, req.ProfessorID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfessorNotFound
		}
		return nil, fmt.Errorf("failed to load professor: %w", err)
	}

	evaluation := &models.Evaluation{
		ProfessorID: req.ProfessorID,
		UserID:      userID,
		Domain:      req.Domain,
		Methodology: req.Methodology,
		Punctuality: req.Punctuality,
	}
	evaluation.Average = evaluation.ComputeAverage()

	var comment *models.Comment
	var newRating float64

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Evaluation().Create(ctx, evaluation); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAlreadyEvaluated
			}
			return err
		}

		if text := strings.TrimSpace(req.CommentText); text != "" {
			date := req.CommentDate
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			comment = &models.Comment{
				ProfessorID: req.ProfessorID,
				UserID:      userID,
				Text:        text,
				Date:        date,
			}
			if err := txRepo.Comment().Create(ctx, comment); err != nil {
				return err
			}
		}

		rating, err := s.recomputeWithRepo(ctx, txRepo, req.ProfessorID)
		if err != nil {
			return err
		}
		newRating = rating
		return nil
	})
	if err != nil {
		if err == ErrAlreadyEvaluated {
			return nil, err
		}
		return nil, fmt.Errorf("failed to submit evaluation: %w", err)
	}

	s.publishEvent(ctx, events.EvaluationSubmitted, map[string]interface{}{
		"professor_id": req.ProfessorID,
		"average":      evaluation.Average,
		"new_rating":   newRating,
	})
	s.publishEvent(ctx, events.ProfessorRatingRecomputed, map[string]interface{}{
		"professor_id": req.ProfessorID,
		"rating":       newRating,
	})

	s.logger.InfoContext(ctx, "Evaluation submitted",
		"professor_id", req.ProfessorID,
		"average", evaluation.Average,
		"new_rating", newRating)

	return &SubmitEvaluationResponse{
		Evaluation: evaluation,
		Comment:    comment,
		NewRating:  newRating,
	}, nil
}

// HasEvaluated is false for anonymous callers, never an error.
func (s *evaluationService) HasEvaluated(ctx context.Context, professorID uint, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.repo.Evaluation().Exists(ctx, professorID, userID)
}

// PickUnevaluated returns a random professor the user has not yet evaluated.
// A caller who has evaluated everyone still gets a random professor, with
// CanEvaluate false and a message. Anonymous callers draw from the full
// directory but cannot submit, so their flag is false as well.
func (s *evaluationService) PickUnevaluated(ctx context.Context, userID string) (*PickUnevaluatedResponse, error) {
	allIDs, err := s.repo.Professor().ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list professors: %w", err)
	}
	if len(allIDs) == 0 {
		return &PickUnevaluatedResponse{Message: "no professors registered"}, nil
	}

	resp := &PickUnevaluatedResponse{}
	candidates := allIDs
	if userID != "" {
		evaluatedIDs, err := s.repo.Evaluation().EvaluatedProfessorIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load evaluated professors: %w", err)
		}

		evaluated := make(map[uint]bool, len(evaluatedIDs))
		for _, id := range evaluatedIDs {
			evaluated[id] = true
		}

		unevaluated := make([]uint, 0, len(allIDs))
		for _, id := range allIDs {
			if !evaluated[id] {
				unevaluated = append(unevaluated, id)
			}
		}

		if len(unevaluated) == 0 {
			resp.Message = "you have already evaluated every professor"
		} else {
			candidates = unevaluated
			resp.CanEvaluate = true
		}
	}

	pick := candidates[rand.Intn(len(candidates))]
	professor, err := s.repo.Professor().GetByID(ctx, pick)
	if err != nil {
		return nil, fmt.Errorf("failed to load picked professor: %w", err)
	}

	resp.Professor = professor
	return resp, nil
}

func (s *evaluationService) ListMyEvaluations(ctx context.Context, userID string) ([]*models.Evaluation, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.repo.Evaluation().ListByUser(ctx, userID)
}

// ===== RATING MAINTENANCE =====

// RecomputeRating rebuilds one professor's rating from the full evaluation
// set. No evaluations yields zero, the unrated marker.
func (s *evaluationService) RecomputeRating(ctx context.Context, professorID uint) (float64, error) {
	return s.recomputeWithRepo(ctx, s.repo, professorID)
}

func (s *evaluationService) recomputeWithRepo(ctx context.Context, repo repositories.Repository, professorID uint) (float64, error) {
	averages, err := repo.Evaluation().AveragesByProfessor(ctx, professorID)
	if err != nil {
		return 0, fmt.Errorf("failed to load averages: %w", err)
	}

	var rating float64
	if len(averages) > 0 {
		var sum float64
		for _, a := range averages {
			sum += a
		}
		rating = models.RoundRating(sum / float64(len(averages)))
	}

	if err := repo.Professor().UpdateRating(ctx, professorID, rating); err != nil {
		return 0, fmt.Errorf("failed to store rating: %w", err)
	}
	return rating, nil
}

// ResyncAllRatings rebuilds every professor's rating. Used by the scheduled
// job and the admin resync endpoint; safe to run at any time because each
// rebuild is idempotent.
func (s *evaluationService) ResyncAllRatings(ctx context.Context) (*ResyncReport, error) {
	start := time.Now()

	ids, err := s.repo.Professor().ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list professors: %w", err)
	}

	report := &ResyncReport{Professors: len(ids)}
	for _, id := range ids {
		if _, err := s.RecomputeRating(ctx, id); err != nil {
			report.Failed++
			s.logger.ErrorContext(ctx, "Rating resync failed for professor",
				"professor_id", id,
				"error", err)
			continue
		}
		report.Updated++
	}
	report.Duration = time.Since(start)

	s.publishEvent(ctx, events.ProfessorRatingRecomputed, map[string]interface{}{
		"professors": report.Professors,
		"updated":    report.Updated,
		"failed":     report.Failed,
	})

	s.logger.InfoContext(ctx, "Rating resync finished",
		"professors", report.Professors,
		"updated", report.Updated,
		"failed", report.Failed,
		"duration", report.Duration)

	return report, nil
}

func (s *evaluationService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", eventType,
			"error", err)
	}
}

// ===== AVATAR GENERATION =====

var avatarPalette = []string{"7C3AED", "2563EB", "0891B2", "059669", "D97706", "DC2626"}

// initialsAvatarURL builds a placeholder avatar from the professor's
// initials on a random palette color.
func initialsAvatarURL(name string) string {
	fields := strings.Fields(name)
	initials := ""
	for i, f := range fields {
		if i == 2 {
			break
		}
		initials += string([]rune(f)[0])
	}
	if initials == "" {
		initials = "P"
	}

	color := avatarPalette[rand.Intn(len(avatarPalette))]
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=%s&color=fff",
		url.QueryEscape(initials), color)
}
