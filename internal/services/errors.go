package services

import (
	"errors"
	"fmt"
)

// ===== SENTINEL ERRORS =====

var (
	ErrNotAuthenticated = errors.New("caller is not authenticated")

	ErrProfessorNotFound = errors.New("professor not found")
	ErrCommentNotFound   = errors.New("comment not found")
	ErrResourceNotFound  = errors.New("resource not found")
	ErrAdminNotFound     = errors.New("admin entry not found")
	ErrUserNotFound      = errors.New("user not found")

	// ErrAlreadyEvaluated signals the one-evaluation-per-professor rule.
	ErrAlreadyEvaluated = errors.New("professor already evaluated by this user")

	// ErrAdminExists signals a duplicate roster email.
	ErrAdminExists = errors.New("admin entry already exists for this email")

	// ErrNotEntitled signals a vote attempt without an active subscription.
	ErrNotEntitled = errors.New("voting requires an active subscription")

	// ErrResourceNotVotable signals a vote on a resource that is not approved.
	ErrResourceNotVotable = errors.New("resource is not open for voting")
)

// ===== PERMISSION ERROR =====

// PermissionError carries who tried what on which entity, for logs and 403
// responses.
type PermissionError struct {
	UserID   string
	EntityID uint
	Entity   string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s",
		e.UserID, e.Action, e.Entity, e.EntityID, e.Reason)
}

func NewPermissionError(userID string, entityID uint, entity, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		EntityID: entityID,
		Entity:   entity,
		Action:   action,
		Reason:   reason,
	}
}

// IsPermissionError reports whether err is a permission denial.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
