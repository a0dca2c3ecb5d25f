package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronConfig holds the job schedules. Specs use six fields, seconds first.
type CronConfig struct {
	AutoAssignEnabled  bool
	AutoAssignSchedule string
	CacheWarmSchedule  string
	AuditCleanup       string
	AuditRetention     time.Duration
}

// DefaultCronConfig returns hourly auto-assign, cache warming every ten
// minutes and a weekly audit cleanup keeping 90 days
func DefaultCronConfig() CronConfig {
	return CronConfig{
		AutoAssignEnabled:  true,
		AutoAssignSchedule: "0 0 * * * *",
		CacheWarmSchedule:  "0 */10 * * * *",
		AuditCleanup:       "0 0 4 * * 0",
		AuditRetention:     90 * 24 * time.Hour,
	}
}

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	cfg        CronConfig
	autoAssign *AutoAssignService
	cache      *CachedSubscriptionSource
	agencies   ActiveAgencyLister
	audit      *AuditService
	logger     *logrus.Logger
	timeout    time.Duration
}

// NewCronService creates a new CronService. Any of the job dependencies may
// be nil, which leaves that job unscheduled.
func NewCronService(
	cfg CronConfig,
	autoAssign *AutoAssignService,
	cache *CachedSubscriptionSource,
	agencies ActiveAgencyLister,
	audit *AuditService,
	logger *logrus.Logger,
) *CronService {
	return &CronService{
		cron:       cron.New(cron.WithSeconds()),
		cfg:        cfg,
		autoAssign: autoAssign,
		cache:      cache,
		agencies:   agencies,
		audit:      audit,
		logger:     logger,
		timeout:    5 * time.Minute,
	}
}

// Start schedules the configured jobs and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	if s.cfg.AutoAssignEnabled && s.autoAssign != nil {
		if _, err := s.cron.AddFunc(s.cfg.AutoAssignSchedule, s.autoAssignJob); err != nil {
			return fmt.Errorf("failed to schedule auto-assign job: %w", err)
		}
		s.logger.WithField("schedule", s.cfg.AutoAssignSchedule).Info("Scheduled: auto-assign open shifts")
	}

	if s.cache != nil && s.agencies != nil && s.cfg.CacheWarmSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.CacheWarmSchedule, s.warmSubscriptionsJob); err != nil {
			return fmt.Errorf("failed to schedule subscription cache job: %w", err)
		}
		s.logger.WithField("schedule", s.cfg.CacheWarmSchedule).Info("Scheduled: warm subscription cache")
	}

	if s.audit != nil && s.cfg.AuditCleanup != "" {
		if _, err := s.cron.AddFunc(s.cfg.AuditCleanup, s.cleanupAuditLogsJob); err != nil {
			return fmt.Errorf("failed to schedule audit cleanup job: %w", err)
		}
		s.logger.WithField("schedule", s.cfg.AuditCleanup).Info("Scheduled: cleanup old audit logs")
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) jobContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *CronService) autoAssignJob() {
	ctx, cancel := s.jobContext()
	defer cancel()

	started := time.Now()
	report, err := s.autoAssign.Run(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Auto-assign job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"assigned": report.Assigned,
		"duration": time.Since(started).String(),
	}).Info("[CRON] Auto-assign job finished")
}

func (s *CronService) warmSubscriptionsJob() {
	ctx, cancel := s.jobContext()
	defer cancel()

	warmed, err := s.cache.WarmAll(ctx, s.agencies)
	if err != nil {
		s.logger.WithError(err).WithField("warmed", warmed).Error("[CRON] Subscription cache job failed")
		return
	}
	s.logger.WithField("warmed", warmed).Debug("[CRON] Subscription cache warmed")
}

func (s *CronService) cleanupAuditLogsJob() {
	ctx, cancel := s.jobContext()
	defer cancel()

	removed, err := s.audit.CleanupOldAuditLogs(ctx, s.cfg.AuditRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Audit cleanup job failed")
		return
	}
	s.logger.WithField("removed", removed).Info("[CRON] Old audit logs removed")
}

// RunAutoAssignNow runs the auto-assign job immediately and returns its report
func (s *CronService) RunAutoAssignNow(ctx context.Context) (*AutoAssignReport, error) {
	if s.autoAssign == nil {
		return nil, fmt.Errorf("auto-assign is not configured")
	}
	s.logger.Info("[MANUAL] Running auto-assign now...")
	return s.autoAssign.Run(ctx)
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
