package graph

import (
	"context"
	"math/rand"
	"sync"
)

// Decision is the outcome of an approval step.
type Decision struct {
	Approved bool
	// Reason is optional free text recorded in the step output.
	Reason string
}

// ApprovalDecider decides whether an approval node approves or rejects.
//
// The runner calls Decide once per approval step. Implementations must be
// safe for concurrent use when one decider is shared by several runners.
type ApprovalDecider interface {
	Decide(ctx context.Context, node Node) (Decision, error)
}

// ApprovalFunc adapts a plain function to ApprovalDecider.
type ApprovalFunc func(ctx context.Context, node Node) (Decision, error)

// Decide calls f.
func (f ApprovalFunc) Decide(ctx context.Context, node Node) (Decision, error) {
	return f(ctx, node)
}

// AlwaysApprove approves every step. It is the runner's default.
var AlwaysApprove ApprovalDecider = ApprovalFunc(func(context.Context, Node) (Decision, error) {
	return Decision{Approved: true}, nil
})

// RejectAll rejects every step.
var RejectAll ApprovalDecider = ApprovalFunc(func(context.Context, Node) (Decision, error) {
	return Decision{Approved: false}, nil
})

// RandomApproval approves with probability rate using a pseudo-random
// source seeded with seed, so a given seed always yields the same sequence
// of decisions.
func RandomApproval(rate float64, seed int64) ApprovalDecider {
	return &randomDecider{rate: rate, rng: rand.New(rand.NewSource(seed))}
}

type randomDecider struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

func (d *randomDecider) Decide(context.Context, Node) (Decision, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Decision{Approved: d.rng.Float64() < d.rate}, nil
}
