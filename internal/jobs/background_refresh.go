// File: internal/jobs/background_refresh.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"repairdesk_backend/internal/config"
	"repairdesk_backend/internal/sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BackgroundRefreshJob periodically revalidates every registered sync
// controller so long-lived clients converge on fresh data without user
// interaction. Failures are per-controller and never abort the sweep.
type BackgroundRefreshJob struct {
	hub           *sync.Hub
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewBackgroundRefreshJob creates a new BackgroundRefreshJob.
func NewBackgroundRefreshJob(
	hub *sync.Hub,
	logger *zap.Logger,
	cfg *config.Config,
) *BackgroundRefreshJob {
	scheduler := cron.New(cron.WithLogger(NewCronLogger(logger.Named("cron"))))

	return &BackgroundRefreshJob{
		hub:           hub,
		logger:        logger.Named("BackgroundRefreshJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *BackgroundRefreshJob) SetupAndStart() error {
	jobSpec := j.cfg.BackgroundRefreshSchedule // e.g., "@every 5m"
	if jobSpec == "" {
		j.logger.Warn("Background refresh schedule not defined (BACKGROUND_REFRESH_SCHEDULE). Job will not run.")
		return nil // Not a fatal error, just won't run
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule background refresh job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Background refresh job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// runJob is the actual work performed by the cron job.
func (j *BackgroundRefreshJob) runJob() {
	j.logger.Info("Starting background refresh sweep...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	j.hub.RefreshAll(ctx)

	for _, status := range j.hub.Statuses() {
		j.logger.Info("Controller refreshed",
			zap.String("domain", status.Domain),
			zap.String("state", string(status.State)),
		)
	}
}

// Stop gracefully stops the cron scheduler.
func (j *BackgroundRefreshJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping background refresh scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Background refresh scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Background refresh scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	cl.zl.Info(msg, fields...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
