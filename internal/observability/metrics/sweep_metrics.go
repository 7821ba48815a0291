package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics tracks the subscription expiry sweep.
type SweepMetrics struct {
	sweepExpired  *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	sweepBacklog  prometheus.Gauge
	sweepLastRun  prometheus.Gauge
}

var (
	sweepMetricsOnce sync.Once
	sweepMetrics     *SweepMetrics
)

func Sweep() *SweepMetrics {
	return SweepWithConfig(Config{})
}

func SweepWithConfig(cfg Config) *SweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetrics = newSweepMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return sweepMetrics
}

func ResetSweepMetricsForTest() {
	sweepMetricsOnce = sync.Once{}
	sweepMetrics = nil
}

func newSweepMetrics(registerer prometheus.Registerer, cfg Config) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "nextway"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	sweepExpired := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "nextway_subscription_sweep_expired_total",
			Help:        "Total subscriptions transitioned to expired by the sweep.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // expired | failed
	)

	sweepDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "nextway_subscription_sweep_duration_seconds",
			Help:        "Duration of one sweep pass over due subscriptions.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
	)

	sweepBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "nextway_subscription_sweep_backlog_total",
			Help:        "Current subscriptions past their end date awaiting expiry.",
			ConstLabels: constLabels,
		},
	)

	sweepLastRun := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "nextway_subscription_sweep_last_run_timestamp_seconds",
			Help:        "Unix timestamp of the last completed sweep pass.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		sweepExpired,
		sweepDuration,
		sweepBacklog,
		sweepLastRun,
	)

	return &SweepMetrics{
		sweepExpired:  sweepExpired,
		sweepDuration: sweepDuration,
		sweepBacklog:  sweepBacklog,
		sweepLastRun:  sweepLastRun,
	}
}

func (m *SweepMetrics) IncExpired(result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.sweepExpired.WithLabelValues(result).Add(float64(count))
}

func (m *SweepMetrics) ObserveSweepDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
	m.sweepLastRun.SetToCurrentTime()
}

func (m *SweepMetrics) SetBacklog(value int) {
	if m == nil {
		return
	}
	m.sweepBacklog.Set(float64(value))
}
