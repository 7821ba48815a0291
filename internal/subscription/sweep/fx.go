package sweep

import (
	"context"

	"github.com/smallbiznis/nextway/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.sweep",
	fx.Provide(func(cfg config.Config) Config {
		return Config{
			BatchSize:    cfg.Sweep.BatchSize,
			PollInterval: cfg.Sweep.Interval,
		}
	}),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, worker *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go worker.RunForever(ctx)
			return nil
		},
	})
}
