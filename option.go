package payroute

import (
	"time"

	"github.com/lanternpay/payroute-go/logger"
	"github.com/lanternpay/payroute-go/metrics"
)

// engineOptions carries the ambient dependencies shared by the finder and
// the executor. Zero values mean noop logging and metrics, DefaultConfig,
// and the wall clock.
type engineOptions struct {
	cfg     Config
	log     logger.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

func defaultOptions() engineOptions {
	return engineOptions{
		cfg:     DefaultConfig,
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		now:     time.Now,
	}
}

// Option configures a RouteFinder or RouteExecutor.
type Option func(*engineOptions)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *engineOptions) {
		o.log = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *engineOptions) {
		o.metrics = r
	}
}

// WithConfig replaces the engine policy. The constructor validates it.
func WithConfig(cfg Config) Option {
	return func(o *engineOptions) {
		o.cfg = cfg
	}
}

// WithClock replaces the time source, for tests that pin quote staleness.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		o.now = now
	}
}
