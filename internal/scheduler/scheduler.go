// Package scheduler runs release checks in the background at the cadence
// configured in the administrator settings.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/gitplugins/internal/plugins"
	"github.com/temirov/gitplugins/internal/settings"
)

const (
	intervalFieldConstant = "interval"
	updatesFieldConstant  = "updates"
)

// ErrCheckerNotConfigured indicates a nil update checker.
var ErrCheckerNotConfigured = errors.New("scheduler: update checker not configured")

// UpdateChecker performs one release check across all repositories.
type UpdateChecker interface {
	CheckForUpdates(executionContext context.Context) ([]plugins.AvailableUpdate, error)
}

// IntervalProvider reports the configured check cadence.
type IntervalProvider interface {
	UpdateInterval(executionContext context.Context) (settings.UpdateInterval, error)
}

// Timer returns a channel that fires once after duration.
type Timer func(duration time.Duration) <-chan time.Time

// Scheduler periodically checks for updates until its context ends.
type Scheduler struct {
	checker   UpdateChecker
	intervals IntervalProvider
	logger    *zap.Logger
	timer     Timer
}

// New constructs a Scheduler. A nil interval provider uses the default cadence.
func New(checker UpdateChecker, intervals IntervalProvider, logger *zap.Logger) (*Scheduler, error) {
	if checker == nil {
		return nil, ErrCheckerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{checker: checker, intervals: intervals, logger: logger, timer: time.After}, nil
}

// WithTimer replaces the wait primitive.
func (scheduler *Scheduler) WithTimer(timer Timer) *Scheduler {
	if timer != nil {
		scheduler.timer = timer
	}
	return scheduler
}

// Run waits one interval, checks for updates, and repeats. The interval is re-read before
// every wait so settings changes apply without a restart. A failed check is logged and the
// loop continues. Run returns nil once the context is cancelled.
func (scheduler *Scheduler) Run(executionContext context.Context) error {
	for {
		if executionContext.Err() != nil {
			scheduler.logger.Info("Update scheduler stopped")
			return nil
		}
		interval := scheduler.currentInterval(executionContext)
		scheduler.logger.Debug("Next update check scheduled", zap.Duration(intervalFieldConstant, interval))

		select {
		case <-executionContext.Done():
			scheduler.logger.Info("Update scheduler stopped")
			return nil
		case <-scheduler.timer(interval):
		}

		updates, checkError := scheduler.checker.CheckForUpdates(executionContext)
		if checkError != nil {
			if executionContext.Err() != nil {
				return nil
			}
			scheduler.logger.Warn("Scheduled update check failed", zap.Error(checkError))
			continue
		}
		scheduler.logger.Info("Scheduled update check completed", zap.Int(updatesFieldConstant, len(updates)))
	}
}

func (scheduler *Scheduler) currentInterval(executionContext context.Context) time.Duration {
	if scheduler.intervals == nil {
		return settings.DefaultUpdateInterval.Duration()
	}
	interval, intervalError := scheduler.intervals.UpdateInterval(executionContext)
	if intervalError != nil {
		scheduler.logger.Warn("Unable to read the update interval, using the default", zap.Error(intervalError))
		return settings.DefaultUpdateInterval.Duration()
	}
	return interval.Duration()
}
