package repositories

import "context"

// Repository aggregates every entity repository behind one handle so
// services receive a single injected dependency.
type Repository interface {
	Professor() ProfessorRepository
	Evaluation() EvaluationRepository
	Comment() CommentRepository
	CommentLike() CommentLikeRepository
	Resource() ResourceRepository
	Profile() ProfileRepository
	Admin() AdminRepository

	// User domain (read-only, backed by the identity provider)
	User() UserRepository

	// WithTransaction runs fn against a Repository whose local stores share
	// one database transaction. The user repository is external and does not
	// participate.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns the repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
