package reclaim

import (
	"context"
	"errors"
	"time"

	"clinicslots/pkg/lock"
	"clinicslots/pkg/logger"

	"github.com/robfig/cron/v3"
)

const LeaseName = "reclaim-expired-holds"

// Job runs a Sweeper on a cron schedule. When a Locker is set only the
// replica holding the lease sweeps.
type Job struct {
	sweeper  *Sweeper
	locker   *lock.Locker
	leaseTTL time.Duration
	log      *logger.Logger
}

func NewJob(sweeper *Sweeper, locker *lock.Locker, leaseTTL time.Duration, log *logger.Logger) *Job {
	return &Job{
		sweeper:  sweeper,
		locker:   locker,
		leaseTTL: leaseTTL,
		log:      log.With("component", "reclaim_job"),
	}
}

// RunOnce performs one sweep under the lease. It reports false when another
// replica held the lease.
func (j *Job) RunOnce(ctx context.Context) (bool, Result, error) {
	if j.locker == nil {
		res, err := j.sweeper.Sweep(ctx)
		return true, res, err
	}

	lease, err := j.locker.Acquire(ctx, LeaseName, j.leaseTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		j.log.Debug("Reclaim lease held elsewhere, skipping run")
		return false, Result{}, nil
	}
	if err != nil {
		return false, Result{}, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			j.log.Warn("Failed to release reclaim lease", "error", err)
		}
	}()

	// The sweep may not outlive the lease.
	ctx, cancel := context.WithTimeout(ctx, j.leaseTTL)
	defer cancel()

	res, err := j.sweeper.Sweep(ctx)
	return true, res, err
}

// Schedule registers the job on a new cron scheduler. Overlapping runs on the
// same replica are skipped.
func (j *Job) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	cl := cronLogger{log: j.log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	_, err := c.AddFunc(spec, func() {
		ran, res, err := j.RunOnce(ctx)
		if err != nil {
			j.log.Error("Reclaim run failed", "error", err)
			return
		}
		if ran {
			j.log.Debug("Reclaim run finished",
				"doctors", res.Doctors,
				"released", res.Released,
				"failed", res.Failed,
			)
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// cronLogger adapts the service logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
