package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/seriarr/seriarr/internal/controllers"
	"github.com/seriarr/seriarr/internal/models"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the reconcile pass on a cron schedule in daemon mode.
type Scheduler struct {
	cron          *cron.Cron
	reconcileCtrl *controllers.ReconcileController
	series        []*models.Series
	schedule      string
	dryRun        bool
	logger        *logrus.Logger
	mu            sync.Mutex
}

// NewScheduler creates a new scheduler.
func NewScheduler(reconcileCtrl *controllers.ReconcileController, series []*models.Series, schedule string, dryRun bool, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		reconcileCtrl: reconcileCtrl,
		series:        series,
		schedule:      schedule,
		dryRun:        dryRun,
		logger:        logger,
	}
}

// Start registers the reconcile job and starts the cron loop. A pass also
// runs immediately so the daemon does not idle until the first tick.
func (s *Scheduler) Start() error {
	s.logger.WithField("schedule", s.schedule).Info("Starting scheduler")

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runPass()
	})
	if err != nil {
		return fmt.Errorf("failed to add reconcile job: %w", err)
	}

	s.cron.Start()

	go s.runPass()

	return nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runPass executes one reconcile pass over all series. The mutex keeps
// passes from overlapping when a tick fires while the previous pass is
// still talking to the collaborators.
func (s *Scheduler) runPass() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Running scheduled reconcile pass")

	s.reconcileCtrl.RunPass(context.Background(), s.series, s.dryRun)

	s.logger.Info("Reconcile pass completed")
}
