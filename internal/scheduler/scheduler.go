package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"wl-portal/internal/config"
	"wl-portal/internal/metrics"
	"wl-portal/internal/repository"
)

// QueueStatsReader reads the review backlog
type QueueStatsReader interface {
	PendingStats(ctx context.Context) (*repository.QueueStats, error)
}

// Scheduler runs periodic maintenance outside the request path
type Scheduler struct {
	cron    *cron.Cron
	stats   QueueStatsReader
	metrics *metrics.Metrics
	config  *config.SchedulerConfig
	now     func() time.Time
	logger  *slog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(stats QueueStatsReader, cfg *config.SchedulerConfig, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		stats:   stats,
		metrics: m,
		config:  cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// Start registers the queue monitor and starts the cron runner
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.QueueCron, s.runQueueCheck); err != nil {
		return fmt.Errorf("invalid queue cron %q: %w", s.config.QueueCron, err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", "queue_cron", s.config.QueueCron)
	return nil
}

// Stop stops the runner and waits for a running job to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("Stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runQueueCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.CheckQueue(ctx); err != nil {
		s.logger.Error("Queue check failed", "error", err)
	}
}

// CheckQueue updates the backlog gauges and warns about stale applications
func (s *Scheduler) CheckQueue(ctx context.Context) error {
	stats, err := s.stats.PendingStats(ctx)
	if err != nil {
		return err
	}

	var age time.Duration
	if stats.OldestPending != nil {
		age = s.now().Sub(*stats.OldestPending)
	}
	s.metrics.SetQueue(stats.Pending, age)

	if stats.Pending > 0 && s.config.StaleAfter > 0 && age > s.config.StaleAfter {
		s.logger.Warn("Pending applications waiting for review",
			"pending", stats.Pending,
			"oldest_age", age.Round(time.Minute).String(),
		)
	}
	return nil
}

// cronLogger adapts slog to the cron logger interface
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
