package runner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"contentboard/pkg/trace"
)

const (
	// WeeklyCycleSpec fires when the review cycle rolls over, Monday 08:00.
	WeeklyCycleSpec = "0 0 8 * * 1"
	// MonthlySpec fires at midnight on the first day of each month.
	MonthlySpec = "0 0 0 1 * *"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron specs (with seconds) in a fixed location.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

func NewScheduler(loc *time.Location, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		timeout: 5 * time.Minute,
		logger:  logger,
	}
}

// Add registers job under spec. Each run gets its own trace id and timeout.
func (s *Scheduler) Add(name, spec string, job Job) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		ctx = trace.WithContext(ctx, trace.GenerateTraceID())

		start := time.Now()
		s.logger.Info("Running job", zap.String("job", name), zap.String("trace_id", trace.FromContext(ctx)))
		if err := job(ctx); err != nil {
			s.logger.Error("Job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
			return
		}
		s.logger.Info("Job completed", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
}

// Next returns the next activation of entry id.
func (s *Scheduler) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
