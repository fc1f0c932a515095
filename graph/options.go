package graph

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dshills/flowsim/graph/emit"
)

// Default simulated processing delay bounds for a step.
const (
	DefaultMinStepDelay = 500 * time.Millisecond
	DefaultMaxStepDelay = time.Second
)

// Option is a functional option for configuring a Runner.
//
// Example:
//
//	runner, err := graph.NewRunner(
//	    graph.WithCatalog(catalog.Default()),
//	    graph.WithApprovalDecider(graph.RandomApproval(0.9, 42)),
//	    graph.WithStepDelay(0, 0),
//	)
type Option func(*runnerConfig) error

// runnerConfig collects options before they are applied to a Runner.
type runnerConfig struct {
	catalog  Catalog
	decider  ApprovalDecider
	policy   DecisionPolicy
	minDelay time.Duration
	maxDelay time.Duration
	clock    func() time.Time
	emitter  emit.Emitter
	metrics  *PrometheusMetrics
	logger   *slog.Logger
	newRunID func() string
}

// WithCatalog sets the automation catalog used both for pre-run validation
// and for resolving automation labels during a run. With a catalog, a step
// whose action id does not resolve fails.
func WithCatalog(c Catalog) Option {
	return func(cfg *runnerConfig) error {
		cfg.catalog = c
		return nil
	}
}

// WithApprovalDecider sets the strategy that approves or rejects approval
// steps. Default: AlwaysApprove.
func WithApprovalDecider(d ApprovalDecider) Option {
	return func(cfg *runnerConfig) error {
		if d == nil {
			return errors.New("approval decider cannot be nil")
		}
		cfg.decider = d
		return nil
	}
}

// WithDecisionPolicy bounds approval decisions with a per-attempt timeout
// and optional retries.
func WithDecisionPolicy(p DecisionPolicy) Option {
	return func(cfg *runnerConfig) error {
		if p.Timeout < 0 {
			return errors.New("decision timeout cannot be negative")
		}
		if p.Retry != nil {
			if err := p.Retry.Validate(); err != nil {
				return err
			}
		}
		cfg.policy = p
		return nil
	}
}

// WithStepDelay sets the bounds of the simulated processing delay. Each step
// waits a uniformly random duration in [min, max]. Use WithStepDelay(0, 0)
// to disable the delay.
//
// Default: 500ms to 1s.
func WithStepDelay(min, max time.Duration) Option {
	return func(cfg *runnerConfig) error {
		if min < 0 || max < min {
			return errors.New("step delay bounds must satisfy 0 <= min <= max")
		}
		cfg.minDelay = min
		cfg.maxDelay = max
		return nil
	}
}

// WithClock overrides the time source used for step timestamps.
func WithClock(now func() time.Time) Option {
	return func(cfg *runnerConfig) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = now
		return nil
	}
}

// WithEmitter sets the progress event emitter. Default: emit.NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *runnerConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *runnerConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithLogger sets the structured logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *runnerConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithRunIDGenerator overrides how run ids are generated. Default: random
// UUIDs.
func WithRunIDGenerator(gen func() string) Option {
	return func(cfg *runnerConfig) error {
		if gen == nil {
			return errors.New("run id generator cannot be nil")
		}
		cfg.newRunID = gen
		return nil
	}
}
