package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/evalua-t/evaluation-service/internal/services"
)

// Scheduler runs the periodic maintenance jobs. Today that is one job: the
// nightly rating rebuild, which repairs any drift between stored ratings
// and the evaluation set.
type Scheduler struct {
	cron       *cron.Cron
	evaluation services.EvaluationService
	logger     *slog.Logger
	schedule   string
}

// NewScheduler creates a scheduler with seconds precision.
func NewScheduler(evaluation services.EvaluationService, logger *slog.Logger, schedule string) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		evaluation: evaluation,
		logger:     logger,
		schedule:   schedule,
	}
}

// Start registers and starts all jobs. An empty schedule disables the
// rating resync without failing startup.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("Rating resync schedule empty, scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, s.runRatingResync)
	if err != nil {
		return fmt.Errorf("failed to register rating resync job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", "rating_resync_schedule", s.schedule)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runRatingResync() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Info("Scheduled rating resync starting")

	report, err := s.evaluation.ResyncAllRatings(ctx)
	if err != nil {
		s.logger.Error("Scheduled rating resync failed", "error", err)
		return
	}

	s.logger.Info("Scheduled rating resync done",
		"professors", report.Professors,
		"updated", report.Updated,
		"failed", report.Failed,
		"duration", report.Duration)
}
