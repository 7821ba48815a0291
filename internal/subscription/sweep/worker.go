// Package sweep expires subscriptions whose term has lapsed.
package sweep

import (
	"context"
	"errors"
	"time"

	auditdomain "github.com/smallbiznis/nextway/internal/audit/domain"
	"github.com/smallbiznis/nextway/internal/clock"
	"github.com/smallbiznis/nextway/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     subscriptiondomain.Repository
	AuditSvc auditdomain.Service         `optional:"true"`
	Metrics  *metrics.SweepMetrics       `optional:"true"`
	Notifier subscriptiondomain.Notifier `optional:"true"`
	Config   Config                      `optional:"true"`
}

// Worker walks current subscriptions past their end date and flips them
// to expired, clearing the owner's entitlement flag.
type Worker struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     subscriptiondomain.Repository
	auditSvc auditdomain.Service
	metrics  *metrics.SweepMetrics
	cfg      Config
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	return &Worker{
		db:       p.DB,
		log:      p.Log.Named("subscription.sweep"),
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
		cfg:      cfg,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(); err != nil {
			w.log.Warn("subscription sweep run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	started := time.Now()
	expired, err := w.processBatch(ctx, w.cfg.BatchSize)
	w.metrics.ObserveSweepDuration(time.Since(started))
	if err != nil {
		return err
	}
	if expired > 0 {
		w.log.Info("subscriptions expired", zap.Int("count", expired))
	}
	return nil
}

func (w *Worker) processBatch(ctx context.Context, limit int) (int, error) {
	if w.db == nil || w.repo == nil {
		return 0, errors.New("sweep_worker_unavailable")
	}
	if limit <= 0 {
		limit = w.cfg.BatchSize
	}

	now := w.clock.Now()
	expired := 0
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := w.repo.FindDueExpiry(ctx, tx, now, limit)
		if err != nil {
			return err
		}
		for _, record := range rows {
			record.Status = subscriptiondomain.StatusExpired
			record.IsCurrent = false
			record.UpdatedAt = now
			if err := w.repo.Update(ctx, tx, record); err != nil {
				return err
			}
			if err := w.repo.SetUserSubscribed(ctx, tx, record.UserID, false, now); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		w.metrics.IncExpired("failed", 1)
		return expired, err
	}

	w.metrics.IncExpired("expired", expired)
	if backlog, err := w.repo.CountDueExpiry(ctx, w.db, w.clock.Now()); err == nil {
		w.metrics.SetBacklog(int(backlog))
	}

	w.auditExpired(ctx, expired)
	return expired, nil
}

func (w *Worker) auditExpired(ctx context.Context, count int) {
	if w.auditSvc == nil || count == 0 {
		return
	}
	err := w.auditSvc.Record(ctx, auditdomain.ActorTypeSystem, "", "subscription.sweep", "subscription", "", map[string]any{
		"expired": count,
	})
	if err != nil {
		w.log.Warn("sweep audit record failed", zap.Error(err))
	}
}
