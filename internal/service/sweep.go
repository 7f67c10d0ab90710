package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"delivery/internal/domain"
	"delivery/internal/redis"
	"delivery/internal/repository"
)

// SweepConfig tunes the dispatch sweep.
type SweepConfig struct {
	Interval     time.Duration
	StaleAfter   time.Duration
	OrderTimeout time.Duration
	Workers      int
	BatchSize    int
	LeaderTTL    time.Duration
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Interval <= 0 {
		c.Interval = 20 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 20 * time.Second
	}
	if c.OrderTimeout <= 0 {
		c.OrderTimeout = 10 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.LeaderTTL <= 0 {
		c.LeaderTTL = 2 * c.Interval
	}
	return c
}

// SweepStats summarises one sweep iteration.
type SweepStats struct {
	Scanned    int
	Reassigned int
	Idled      int
	Skipped    int
	Failed     int
	Elapsed    time.Duration
}

// DispatchSweep re-dispatches orders left pending for too long: each goes
// to another eligible driver, or to idle when there is none.
type DispatchSweep struct {
	store     repository.Store
	selector  *DriverCandidateSelector
	lifecycle *OrderLifecycle
	locks     redis.LockStoreInterface
	cfg       SweepConfig
	owner     string
	metrics   Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatchSweep creates a new DispatchSweep. locks may be nil for a
// single replica.
func NewDispatchSweep(
	store repository.Store,
	selector *DriverCandidateSelector,
	lifecycle *OrderLifecycle,
	locks redis.LockStoreInterface,
	cfg SweepConfig,
	metrics Metrics,
	logger *slog.Logger,
) *DispatchSweep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchSweep{
		store:     store,
		selector:  selector,
		lifecycle: lifecycle,
		locks:     locks,
		cfg:       cfg.withDefaults(),
		owner:     uuid.New().String(),
		metrics:   metricsOrNop(metrics),
		logger:    logger.With("component", "dispatch_sweep"),
		now:       time.Now,
	}
}

// Run sweeps at a fixed cadence until ctx is canceled. An iteration that
// overruns the interval is followed immediately by the next one.
func (s *DispatchSweep) Run(ctx context.Context) error {
	s.logger.Info("dispatch sweep started",
		"interval", s.cfg.Interval,
		"stale_after", s.cfg.StaleAfter,
		"workers", s.cfg.Workers,
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("dispatch sweep stopped")
			return nil
		case <-timer.C:
		}

		started := s.now()
		s.iterate(ctx)

		wait := s.cfg.Interval - s.now().Sub(started)
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

// iterate runs one sweep if this replica holds the leader lock.
func (s *DispatchSweep) iterate(ctx context.Context) {
	if s.locks != nil {
		acquired, err := s.locks.Acquire(ctx, redis.SweepLockName, s.owner, s.cfg.LeaderTTL)
		switch {
		case err != nil:
			s.logger.Warn("sweep leader lock unavailable, sweeping anyway", "error", err)
		case !acquired:
			s.logger.Debug("another replica holds the sweep lock")
			return
		default:
			defer func() {
				if err := s.locks.Release(context.WithoutCancel(ctx), redis.SweepLockName, s.owner); err != nil {
					s.logger.Warn("failed to release sweep leader lock", "error", err)
				}
			}()
		}
	}

	stats, err := s.SweepOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("dispatch sweep failed", "error", err)
		}
		return
	}

	if stats.Scanned > 0 {
		s.logger.Info("dispatch sweep completed",
			"scanned", stats.Scanned,
			"reassigned", stats.Reassigned,
			"idled", stats.Idled,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
			"elapsed", stats.Elapsed,
		)
	}
}

// SweepOnce processes every stale pending order once. A failure on one
// order is logged and counted; it never stops the others.
func (s *DispatchSweep) SweepOnce(ctx context.Context) (SweepStats, error) {
	started := s.now()

	orders, err := s.store.Repos().Orders.ListStalePending(ctx, started.Add(-s.cfg.StaleAfter), s.cfg.BatchSize)
	if err != nil {
		return SweepStats{}, err
	}

	var reassigned, idled, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, order := range orders {
		order := order
		g.Go(func() error {
			octx, cancel := context.WithTimeout(gctx, s.cfg.OrderTimeout)
			defer cancel()

			outcome, err := s.redispatch(octx, order)
			switch {
			case err == nil && outcome == domain.OrderStatusIdle:
				idled.Add(1)
			case err == nil:
				reassigned.Add(1)
			case errors.Is(err, repository.ErrConflict), errors.Is(err, ErrPaymentInProgress):
				skipped.Add(1)
			default:
				failed.Add(1)
				s.logger.Warn("failed to redispatch order",
					"order_id", order.ID,
					"error", err,
				)
			}
			return nil
		})
	}

	_ = g.Wait()

	stats := SweepStats{
		Scanned:    len(orders),
		Reassigned: int(reassigned.Load()),
		Idled:      int(idled.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
		Elapsed:    s.now().Sub(started),
	}
	s.metrics.RecordSweep(ctx, stats)

	return stats, nil
}

// redispatch hands order to a new candidate or marks it idle. It returns
// the resulting status.
func (s *DispatchSweep) redispatch(ctx context.Context, order *domain.Order) (domain.OrderStatus, error) {
	driver, err := s.selector.Select(ctx, order.Pickup, order.VehicleID, order.ExcludedDrivers())
	if err != nil {
		return "", err
	}

	if driver == nil {
		if _, err := s.lifecycle.MarkIdle(ctx, order.ID, order.StatusVersion); err != nil {
			return "", err
		}
		return domain.OrderStatusIdle, nil
	}

	if _, err := s.lifecycle.ReassignStale(ctx, order.ID, order.StatusVersion, driver.UserID); err != nil {
		return "", err
	}
	return domain.OrderStatusPending, nil
}
