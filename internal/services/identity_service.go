package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/events"
	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
	"github.com/evalua-t/evaluation-service/internal/validator"
)

// FallbackRoster is the static, configuration-sourced roster consulted when
// the database roster cannot be read. It can only ever grant roles listed
// in it; an empty roster means every degraded resolution yields RoleUser.
type FallbackRoster struct {
	Admins      []string
	SuperAdmins []string
}

func (f FallbackRoster) roleFor(email string) models.UserRole {
	lowered := strings.ToLower(email)
	for _, e := range f.SuperAdmins {
		if strings.ToLower(e) == lowered {
			return models.RoleSuperAdmin
		}
	}
	for _, e := range f.Admins {
		if strings.ToLower(e) == lowered {
			return models.RoleAdmin
		}
	}
	return models.RoleUser
}

type identityService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	fallback  FallbackRoster
}

func NewIdentityService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, fallback FallbackRoster) IdentityService {
	return &identityService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		fallback:  fallback,
	}
}

// ===== ROLE RESOLUTION =====

// Resolve determines the caller's effective role. The database roster is
// authoritative; a clean miss there means a regular user. Only a roster
// read FAILURE activates the static fallback, and that activation is
// marked on the result and emitted as an event so a degraded resolver
// never goes unnoticed.
func (s *identityService) Resolve(ctx context.Context, userID string) (*RoleResolution, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}

	resolution := &RoleResolution{
		UserID: userID,
		Email:  user.Email,
		Role:   models.RoleUser,
		Source: SourceRoster,
	}
	s.consultRoster(ctx, resolution)

	return resolution, nil
}

// ResolveByEmail answers the effective role for an arbitrary email without
// consulting the identity provider. Roster checks where only the email is
// known go through here.
func (s *identityService) ResolveByEmail(ctx context.Context, email string) (*RoleResolution, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrNotAuthenticated
	}

	resolution := &RoleResolution{
		Email:  email,
		Role:   models.RoleUser,
		Source: SourceRoster,
	}
	s.consultRoster(ctx, resolution)

	return resolution, nil
}

// consultRoster fills resolution.Role from the database roster. A clean miss
// leaves RoleUser; a read failure answers from the static fallback and flags
// the resolution as degraded.
func (s *identityService) consultRoster(ctx context.Context, resolution *RoleResolution) {
	admin, err := s.repo.Admin().GetActiveByEmail(ctx, resolution.Email)
	switch {
	case err == nil:
		resolution.Role = admin.Role

	case repositories.IsNotFoundError(err):
		// Clean miss: a regular user.

	default:
		// Roster unreachable. Answer from the static fallback and flag it.
		resolution.Role = s.fallback.roleFor(resolution.Email)
		resolution.Source = SourceFallback
		resolution.Degraded = true

		s.logger.WarnContext(ctx, "Admin roster unreachable, using fallback roster",
			"user_id", resolution.UserID,
			"resolved_role", resolution.Role,
			"error", err)

		s.publishEvent(ctx, events.AuthDegraded, map[string]interface{}{
			"user_id":       resolution.UserID,
			"resolved_role": resolution.Role,
		})
	}
}

func (s *identityService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	resolution, err := s.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	return resolution.Role.Satisfies(models.RoleAdmin), nil
}

func (s *identityService) IsSuperAdmin(ctx context.Context, userID string) (bool, error) {
	resolution, err := s.Resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	return resolution.Role == models.RoleSuperAdmin, nil
}

// RequireRole fails closed: any resolution error denies, it never assumes
// a role.
func (s *identityService) RequireRole(ctx context.Context, userID string, required models.UserRole) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	resolution, err := s.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	if !resolution.Role.Satisfies(required) {
		return NewPermissionError(userID, 0, "role", "require",
			fmt.Sprintf("role %s does not satisfy %s", resolution.Role, required))
	}
	return nil
}

// ===== ROSTER MANAGEMENT =====

// AddAdmin inserts a roster entry keyed by email. The account link is
// best-effort: when the identity provider knows the email the row stores
// the account ID, otherwise the row stays unlinked and still works because
// resolution matches on email.
func (s *identityService) AddAdmin(ctx context.Context, req *CreateAdminRequest, actorID string) (*models.AdminUser, error) {
	if err := s.RequireRole(ctx, actorID, models.RoleSuperAdmin); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.Admin().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check roster: %w", err)
	}
	if exists {
		return nil, ErrAdminExists
	}

	var accountID *string
	if id, err := s.repo.User().LookupAccountID(ctx, email); err == nil {
		accountID = &id
	} else if !repositories.IsNotFoundError(err) {
		s.logger.WarnContext(ctx, "Account lookup failed, storing unlinked roster entry",
			"email_domain", emailDomain(email),
			"error", err)
	}

	admin := &models.AdminUser{
		Email:     email,
		UserID:    accountID,
		Role:      req.Role,
		IsActive:  true,
		CreatedBy: actorID,
	}

	if err := s.repo.Admin().Create(ctx, admin); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("failed to create roster entry: %w", err)
	}

	s.publishEvent(ctx, events.AdminRosterChanged, map[string]interface{}{
		"admin_id": admin.ID,
		"role":     admin.Role,
		"action":   "added",
		"actor_id": actorID,
	})

	s.logger.InfoContext(ctx, "Admin added to roster",
		"admin_id", admin.ID,
		"role", admin.Role,
		"linked", accountID != nil,
		"actor_id", actorID)

	return admin, nil
}

func (s *identityService) UpdateAdminStatus(ctx context.Context, id uint, req *UpdateAdminStatusRequest, actorID string) (*models.AdminUser, error) {
	if err := s.RequireRole(ctx, actorID, models.RoleSuperAdmin); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	admin, err := s.repo.Admin().UpdateStatus(ctx, id, *req.IsActive)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to update roster entry: %w", err)
	}

	s.publishEvent(ctx, events.AdminRosterChanged, map[string]interface{}{
		"admin_id": admin.ID,
		"action":   "status_updated",
		"active":   admin.IsActive,
		"actor_id": actorID,
	})

	return admin, nil
}

func (s *identityService) UpdateAdminRole(ctx context.Context, id uint, req *UpdateAdminRoleRequest, actorID string) (*models.AdminUser, error) {
	if err := s.RequireRole(ctx, actorID, models.RoleSuperAdmin); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	admin, err := s.repo.Admin().UpdateRole(ctx, id, req.Role)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to update roster entry: %w", err)
	}

	s.publishEvent(ctx, events.AdminRosterChanged, map[string]interface{}{
		"admin_id": admin.ID,
		"action":   "role_updated",
		"role":     admin.Role,
		"actor_id": actorID,
	})

	return admin, nil
}

func (s *identityService) ListAdmins(ctx context.Context, actorID string) ([]*models.AdminUser, error) {
	if err := s.RequireRole(ctx, actorID, models.RoleSuperAdmin); err != nil {
		return nil, err
	}
	return s.repo.Admin().List(ctx)
}

// ===== PRINCIPAL LOOKUP =====

func (s *identityService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *identityService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", eventType,
			"error", err)
	}
}

func emailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[at+1:]
	}
	return ""
}
