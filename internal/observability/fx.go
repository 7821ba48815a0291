// Package observability wires logging, tracing and metrics.
package observability

import (
	"github.com/smallbiznis/nextway/internal/config"
	"github.com/smallbiznis/nextway/internal/observability/logger"
	"github.com/smallbiznis/nextway/internal/observability/metrics"
	"github.com/smallbiznis/nextway/internal/observability/tracing"
	"go.uber.org/fx"
)

const serviceName = "nextway"

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) logger.Config {
		return logger.Config{Environment: cfg.Environment, Level: cfg.LogLevel}
	}),
	fx.Provide(logger.NewLogger),
	fx.Provide(func(cfg config.Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.Tracing.Enabled,
			ServiceName:      serviceName,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
			ExporterProtocol: cfg.Tracing.ExporterProtocol,
			SamplingRatio:    cfg.Tracing.SamplingRatio,
		}
	}),
	// Invoked, not provided: nothing consumes the tracer provider, so a
	// lazy provide would never construct it and tracing would stay dark.
	fx.Invoke(tracing.NewProvider),
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{ServiceName: serviceName, Environment: cfg.Environment}
	}),
	fx.Provide(metrics.NewMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(metrics.SweepWithConfig),
)
