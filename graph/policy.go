package graph

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrInvalidRetryPolicy is returned by RetryPolicy.Validate.
var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

// DecisionPolicy bounds calls to the ApprovalDecider. It matters for
// deciders backed by remote models, which can hang or fail transiently.
//
// The zero value applies no timeout and makes a single attempt.
type DecisionPolicy struct {
	// Timeout limits each attempt. Zero means no limit.
	Timeout time.Duration

	// Retry retries failed attempts. Nil means no retries.
	Retry *RetryPolicy
}

// RetryPolicy configures retries with exponential backoff and jitter.
type RetryPolicy struct {
	// MaxAttempts counts the initial attempt, so 1 means no retries.
	MaxAttempts int

	// BaseDelay is the backoff base: attempt n waits
	// min(BaseDelay * 2^n, MaxDelay) plus up to BaseDelay of jitter.
	BaseDelay time.Duration

	// MaxDelay caps the exponential part. Zero means no cap.
	MaxDelay time.Duration

	// Retryable reports whether an error is worth retrying. Nil retries
	// every error except context cancellation of the run itself.
	Retryable func(error) bool
}

// Validate checks the policy.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidRetryPolicy)
	}
	if rp.BaseDelay < 0 || rp.MaxDelay < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidRetryPolicy)
	}
	if rp.MaxDelay > 0 && rp.BaseDelay > 0 && rp.MaxDelay < rp.BaseDelay {
		return fmt.Errorf("%w: max delay must be >= base delay", ErrInvalidRetryPolicy)
	}
	return nil
}

func (rp *RetryPolicy) retryable(err error) bool {
	if rp.Retryable == nil {
		return true
	}
	return rp.Retryable(err)
}

// computeBackoff returns the wait before retry number attempt (0-based).
func computeBackoff(attempt int, base, maxDelay time.Duration, rng *rand.Rand) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base * (1 << attempt)
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return delay + time.Duration(rng.Int63n(int64(base)))
}

// decide asks the decider under the runner's decision policy.
func (r *Runner) decide(ctx context.Context, node Node) (Decision, error) {
	attempts := 1
	if r.policy.Retry != nil {
		attempts = r.policy.Retry.MaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			r.rngMu.Lock()
			wait := computeBackoff(attempt-1, r.policy.Retry.BaseDelay, r.policy.Retry.MaxDelay, r.rng)
			r.rngMu.Unlock()
			r.logger.Debug("retrying approval decision", "node_id", node.ID, "attempt", attempt+1, "wait", wait, "error", lastErr)
			if err := sleep(ctx, wait); err != nil {
				return Decision{}, err
			}
		}

		decision, err := r.decideOnce(ctx, node)
		if err == nil {
			return decision, nil
		}
		lastErr = err
		if ctx.Err() != nil || (r.policy.Retry != nil && !r.policy.Retry.retryable(err)) {
			break
		}
	}
	if attempts > 1 {
		return Decision{}, fmt.Errorf("%w after %d attempt(s)", lastErr, attempts)
	}
	return Decision{}, lastErr
}

func (r *Runner) decideOnce(ctx context.Context, node Node) (Decision, error) {
	if r.policy.Timeout <= 0 {
		return r.decider.Decide(ctx, node)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()

	decision, err := r.decider.Decide(attemptCtx, node)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Decision{}, fmt.Errorf("decision exceeded timeout of %v: %w", r.policy.Timeout, err)
	}
	return decision, err
}
