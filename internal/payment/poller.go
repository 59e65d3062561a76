package payment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sokonet/hotspot-portal/internal/billing"
)

// State of one payment session.
type State string

const (
	StatePending  State = "pending"
	StatePolling  State = "polling"
	StateActive   State = "active"
	StateFailed   State = "failed"
	StateTimedOut State = "timed_out"
)

// Terminal reports whether the state machine will not move again.
func (s State) Terminal() bool {
	switch s {
	case StateActive, StateFailed, StateTimedOut:
		return true
	}
	return false
}

// Result is present only when the session reached StateActive.
type Result struct {
	PlanName string
	Expiry   string
}

// Snapshot is one observed point of a session, delivered to the transition
// callback and readable through the session registry.
type Snapshot struct {
	CorrelationID int64
	Attempt       int
	State         State
	Result        *Result
	Detail        string
}

// StatusClient is the slice of the billing client the poller needs.
type StatusClient interface {
	PaymentStatus(ctx context.Context, correlationID int64) (*billing.StatusResponse, error)
}

// CancelFunc retires a polling sequence. After it returns, no further
// transition callbacks are delivered, including for a query already in
// flight. Callers must hold the handle themselves and invoke it before
// starting a new purchase on the same surface.
//
// CancelFunc must not be invoked from inside the transition callback: the
// suppression guarantee serializes cancellation with callback delivery, so
// a re-entrant cancel would block on its own delivery.
type CancelFunc func()

// Poller turns a correlation id into a terminal outcome by querying payment
// status on a fixed interval. Attempts are strictly sequential: the next
// query is not dispatched until the previous one settled.
//
// A transport error on a tick is not a transition. It is logged, counted
// against the attempt budget and otherwise treated as "still pending"; only
// the attempt that exhausts the budget surfaces its error, as the TimedOut
// reason.
type Poller struct {
	client      StatusClient
	interval    time.Duration
	maxAttempts int
	log         *slog.Logger
}

// Defaults: 24 attempts at 2.5s is about a minute of polling, matching the
// window an M-Pesa STK push stays actionable on the handset.
const (
	DefaultInterval    = 2500 * time.Millisecond
	DefaultMaxAttempts = 24
)

// NewPoller creates a status poller. Zero interval or maxAttempts fall back
// to the defaults.
func NewPoller(client StatusClient, interval time.Duration, maxAttempts int, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Poller{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Start fires an immediate first query, then re-queries on the configured
// interval until a terminal state or cancellation. onTransition is invoked
// on every processed attempt and on the terminal state, never concurrently.
func (p *Poller) Start(ctx context.Context, correlationID int64, onTransition func(Snapshot)) CancelFunc {
	ctx, cancel := context.WithCancel(ctx)

	run := &pollRun{
		poller:        p,
		correlationID: correlationID,
		onTransition:  onTransition,
	}
	go run.loop(ctx)

	return func() {
		run.mu.Lock()
		run.cancelled = true
		run.mu.Unlock()
		cancel()
	}
}

type pollRun struct {
	poller        *Poller
	correlationID int64
	onTransition  func(Snapshot)

	mu        sync.Mutex
	cancelled bool
}

// emit delivers a snapshot unless the run was cancelled. The cancelled check
// and the callback share one critical section so a cancel observed by the
// caller guarantees no later delivery. The same section is what forbids
// calling the CancelFunc from inside the callback.
func (r *pollRun) emit(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled {
		return
	}
	r.onTransition(snap)
}

func (r *pollRun) loop(ctx context.Context) {
	p := r.poller

	snap := Snapshot{
		CorrelationID: r.correlationID,
		State:         StatePolling,
	}
	r.emit(snap)

	for attempt := 1; ; attempt++ {
		status, err := p.client.PaymentStatus(ctx, r.correlationID)
		if ctx.Err() != nil {
			return
		}

		snap.Attempt = attempt

		if err != nil {
			p.log.Warn("payment status check failed",
				"correlation_id", r.correlationID,
				"attempt", attempt,
				"error", err,
			)
		} else {
			switch status.Status {
			case "active":
				snap.State = StateActive
				snap.Result = &Result{PlanName: status.PlanName, Expiry: status.Expiry}
				p.log.Info("payment active",
					"correlation_id", r.correlationID,
					"attempt", attempt,
					"plan", status.PlanName,
					"expiry", status.Expiry,
				)
				r.emit(snap)
				return
			case "failed", "cancelled":
				snap.State = StateFailed
				snap.Detail = failureDetail(status)
				p.log.Warn("payment failed",
					"correlation_id", r.correlationID,
					"attempt", attempt,
					"status", status.Status,
				)
				r.emit(snap)
				return
			}
		}

		if attempt >= p.maxAttempts {
			snap.State = StateTimedOut
			if err != nil {
				snap.Detail = "no response from payment service: " + err.Error()
			} else {
				snap.Detail = "payment confirmation not received in time"
			}
			p.log.Warn("payment polling exhausted",
				"correlation_id", r.correlationID,
				"attempts", attempt,
			)
			r.emit(snap)
			return
		}

		r.emit(snap)

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func failureDetail(status *billing.StatusResponse) string {
	if status.Message != "" {
		return status.Message
	}
	return "payment was not completed"
}
