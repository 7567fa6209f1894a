package circuitbreaker

import (
	"context"
	"errors"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultFailureThreshold = 5
	defaultFailWindow       = 10
	defaultOpenCooldown     = 30
	defaultHalfOpenLease    = 5
	defaultFailOpen         = true
	defaultPrefix           = "cb:"
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

type Breaker interface {
	Allow(ctx context.Context) error
	OnSuccess(ctx context.Context)
	OnFailure(ctx context.Context)
	State(ctx context.Context) State
}

type Options struct {
	// Number of failures before entering open state.
	FailureThreshold int
	// Time between failures to count as an outage.
	FailWindow time.Duration
	// How long to stay in open state before triggering half-open state.
	OpenCoolDown time.Duration
	// Lease held by the single instance probing a half-open circuit.
	HalfOpenLease time.Duration
	// Decides Allow while Redis cannot be reached.
	// TRUE: requests proceed without the breaker participating
	// FALSE: requests are blocked
	FailOpen bool
	// Key prefix to prevent name clashing.
	Prefix string
}

func DefaultOptions() Options {
	return Options{
		FailureThreshold: defaultFailureThreshold,
		FailWindow:       defaultFailWindow * time.Second,
		OpenCoolDown:     defaultOpenCooldown * time.Second,
		HalfOpenLease:    defaultHalfOpenLease * time.Second,
		FailOpen:         defaultFailOpen,
		Prefix:           defaultPrefix,
	}
}

// Noop never opens. Used when Redis is disabled.
type Noop struct{}

var _ Breaker = Noop{}

func (Noop) Allow(context.Context) error { return nil }
func (Noop) OnSuccess(context.Context)   {}
func (Noop) OnFailure(context.Context)   {}
func (Noop) State(context.Context) State { return StateClosed }
