package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/evalua-t/evaluation-service/internal/events"
	"github.com/evalua-t/evaluation-service/internal/repositories"
	"github.com/evalua-t/evaluation-service/internal/storage"
	"github.com/evalua-t/evaluation-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	EnableDebugLogging bool
	LogLevel           slog.Level

	// Fallback roster used when the database roster is unreachable
	Fallback FallbackRoster

	// Service-specific configurations
	Evaluation ServiceConfig
	Engagement ServiceConfig
	Resource   ServiceConfig
	Identity   ServiceConfig

	DefaultTimeout time.Duration
}

type ServiceConfig struct {
	Enabled      bool
	CacheEnabled bool
	CacheTTL     time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	blobs     storage.BlobStore
	config    ServiceManagerConfig

	// Service instances
	evaluationService EvaluationService
	engagementService EngagementService
	resourceService   ResourceService
	identityService   IdentityService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, blobs storage.BlobStore, config ServiceManagerConfig) ServiceManager {
	sm := &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		blobs:     blobs,
		config:    config,
	}
	sm.initialize()
	return sm
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, blobs storage.BlobStore, fallback FallbackRoster) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,
		Fallback:           fallback,

		Evaluation: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     5 * time.Minute,
		},
		Engagement: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false,
		},
		Resource: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     5 * time.Minute,
		},
		Identity: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     10 * time.Minute,
		},

		DefaultTimeout: 30 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, publisher, blobs, config)
}

// initialize wires every enabled service. Identity comes first because the
// other services delegate their permission checks to it.
func (sm *serviceManager) initialize() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return
	}

	if sm.config.Identity.Enabled {
		sm.identityService = NewIdentityService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher, sm.config.Fallback)
		sm.logger.Info("Identity service initialized")
	}

	if sm.config.Evaluation.Enabled {
		sm.evaluationService = NewEvaluationService(sm.repo, sm.db, sm.logger, sm.validator, sm.identityService, sm.publisher)
		sm.logger.Info("Evaluation service initialized")
	}

	if sm.config.Engagement.Enabled {
		sm.engagementService = NewEngagementService(sm.repo, sm.db, sm.logger)
		sm.logger.Info("Engagement service initialized")
	}

	if sm.config.Resource.Enabled {
		sm.resourceService = NewResourceService(sm.repo, sm.db, sm.logger, sm.validator, sm.identityService, sm.publisher, sm.blobs)
		sm.logger.Info("Resource service initialized")
	}

	sm.initialized = true
}

func (sm *serviceManager) Evaluation() EvaluationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.evaluationService
}

func (sm *serviceManager) Engagement() EngagementService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.engagementService
}

func (sm *serviceManager) Resource() ResourceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.resourceService
}

func (sm *serviceManager) Identity() IdentityService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.identityService
}

// HealthCheck verifies the shared dependencies behind every service.
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}
	if !sm.initialized {
		return fmt.Errorf("service manager is not initialized")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Close releases resources held by the services.
func (sm *serviceManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}
	sm.shutdown = true

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Warn("Failed to close event publisher", "error", err)
		}
	}

	sm.logger.Info("Service manager closed")
	return nil
}
