package behaviortree

import (
	"context"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"
	"github.com/rs/zerolog"
)

var (
	defaultTickRate    = 10 * time.Millisecond
	defaultTickTimeout = time.Second
	defaultTracer      = opentracing.NoopTracer{}
)

// RunConfiguration holds the tunables for Run, starting from the defaults
// set by defaultRunConfig and customized by RunOptions.
type RunConfiguration struct {
	tickRate    time.Duration
	tickTimeout time.Duration
	tracer      opentracing.Tracer
	logger      zerolog.Logger
}

func defaultRunConfig() *RunConfiguration {
	return &RunConfiguration{
		tickRate:    defaultTickRate,
		tickTimeout: defaultTickTimeout,
		tracer:      &defaultTracer,
		logger:      zerolog.Nop(),
	}
}

// RunOption customizes a RunConfiguration.
type RunOption func(*RunConfiguration)

// WithTracer installs tracer as the opentracing.Tracer used for the root
// span of every tick.
func WithTracer(tracer opentracing.Tracer) RunOption {
	return func(c *RunConfiguration) { c.tracer = tracer }
}

// WithTickRate sets the delay between successive ticks while the tree
// keeps returning Running.
func WithTickRate(rate time.Duration) RunOption {
	return func(c *RunConfiguration) { c.tickRate = rate }
}

// WithTickTimeout bounds how long any single tick is allowed to run before
// its context is canceled.
func WithTickTimeout(timeout time.Duration) RunOption {
	return func(c *RunConfiguration) { c.tickTimeout = timeout }
}

// WithRunLogger attaches a structured logger Run uses to report each
// tick's outcome.
func WithRunLogger(logger zerolog.Logger) RunOption {
	return func(c *RunConfiguration) { c.logger = logger }
}

// Run ticks root at tickRate, respecting tickTimeout per tick, until it
// returns a terminal Status or ctx is canceled. A canceled context while
// waiting between ticks is reported as Failure.
func Run(ctx context.Context, root *Node, opts ...RunOption) (Status, error) {
	config := defaultRunConfig()
	for _, opt := range opts {
		opt(config)
	}
	opentracing.SetGlobalTracer(config.tracer)

	for {
		tickCtx, cancel := context.WithTimeout(ctx, config.tickTimeout)
		span := opentracing.StartSpan("behaviortree::root")
		tickCtx = opentracing.ContextWithSpan(tickCtx, span)

		status, err := root.Tick(tickCtx)
		cancel()

		span.LogFields(
			log.String("node_type", root.TypeName()),
			log.String("node_status", status.String()),
		)
		span.Finish()

		config.logger.Debug().
			Str("node_type", root.TypeName()).
			Str("status", status.String()).
			Err(err).
			Msg("tick complete")

		if err != nil {
			return status, err
		}
		if status.Completed() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return Failure, ctx.Err()
		case <-time.After(config.tickRate):
			continue
		}
	}
}
