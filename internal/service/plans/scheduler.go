package plans

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SpasiboVadya/loan-planning-system/internal/metrics"
	"github.com/SpasiboVadya/loan-planning-system/pkg/logger"
)

// monthlySpec fires at midnight on the first day of every month.
const monthlySpec = "0 0 1 * *"

// jobTimeout bounds a single plan insertion run.
const jobTimeout = 2 * time.Minute

// Scheduler runs the monthly plan insertion job.
type Scheduler struct {
	cron *cron.Cron
	svc  *Service
	log  *logger.Logger
}

// NewScheduler wires the plan service into a cron runner. Start must be
// called to begin scheduling.
func NewScheduler(svc *Service, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewDefault("plans-scheduler")
	}
	s := &Scheduler{
		cron: cron.New(),
		svc:  svc,
		log:  log,
	}
	if _, err := s.cron.AddFunc(monthlySpec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("monthly plan scheduler started")
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("monthly plan scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	_, err := s.svc.InsertPlans(ctx, start.UTC())
	metrics.RecordPlanInsertion(time.Since(start), err == nil)
	if err != nil {
		s.log.WithError(err).Error("monthly plan insertion failed")
	}
}
