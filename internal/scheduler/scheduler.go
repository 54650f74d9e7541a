package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kiranalabs/kirana/internal/actor"
	"github.com/kiranalabs/kirana/internal/clock"
	obsmetrics "github.com/kiranalabs/kirana/internal/observability/metrics"
	paymentdomain "github.com/kiranalabs/kirana/internal/payment/domain"
	"github.com/kiranalabs/kirana/internal/ratelimit"
)

const sweepLockKey = "reconcile:sweep"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Payments paymentdomain.Service
	Locker   *ratelimit.Locker `optional:"true"`
	Config   Config            `optional:"true"`
}

// Scheduler periodically re-checks pending payments against their gateways.
// Deployments with redis take a distributed lock so only one replica sweeps
// at a time; without redis the sweep just runs locally.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	payments paymentdomain.Service
	locker   *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Payments == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		payments: p.Payments,
		locker:   p.Locker,
	}, nil
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx = actor.WithActor(ctx, actor.System())
	sweepMetrics := obsmetrics.Sweep()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.cfg.LockTTL)
		if err != nil {
			sweepMetrics.RecordError(err)
			return err
		}
		if !ok {
			sweepMetrics.RecordDeferred(obsmetrics.SweepDeferredReasonLockHeld)
			s.log.Debug("sweep deferred, lock held elsewhere")
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
				s.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	start := s.clock.Now()
	result, err := s.payments.SyncAllPending(ctx)
	sweepMetrics.ObserveRun(s.clock.Now().Sub(start))

	if err != nil {
		sweepMetrics.RecordError(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.log.Warn("sweep timed out", zap.Duration("timeout", s.cfg.JobTimeout))
			return nil
		}
		return err
	}

	if result.Checked == 0 {
		sweepMetrics.RecordDeferred(obsmetrics.SweepDeferredReasonEmpty)
		return nil
	}

	for i := 0; i < result.Updated; i++ {
		sweepMetrics.RecordIntent("updated")
	}
	for i := 0; i < result.Failed; i++ {
		sweepMetrics.RecordIntent("failed")
	}
	for i := 0; i < result.Checked-result.Updated-result.Failed; i++ {
		sweepMetrics.RecordIntent("unchanged")
	}

	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sweep run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
