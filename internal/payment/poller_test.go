package payment_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sokonet/hotspot-portal/internal/billing"
	"github.com/sokonet/hotspot-portal/internal/payment"
)

type statusFunc func(ctx context.Context, correlationID int64) (*billing.StatusResponse, error)

func (f statusFunc) PaymentStatus(ctx context.Context, correlationID int64) (*billing.StatusResponse, error) {
	return f(ctx, correlationID)
}

// recorder collects every delivered snapshot and signals when a terminal
// one arrives.
type recorder struct {
	mu    sync.Mutex
	snaps []payment.Snapshot
	done  chan payment.Snapshot
}

func newRecorder() *recorder {
	return &recorder{done: make(chan payment.Snapshot, 1)}
}

func (r *recorder) onTransition(snap payment.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, snap)
	r.mu.Unlock()
	if snap.State.Terminal() {
		r.done <- snap
	}
}

func (r *recorder) all() []payment.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]payment.Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

func (r *recorder) waitTerminal(t *testing.T) payment.Snapshot {
	t.Helper()
	select {
	case snap := <-r.done:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no terminal state delivered")
		return payment.Snapshot{}
	}
}

func TestPoller_AlwaysPending_TimesOutAfterExactBudget(t *testing.T) {
	var calls int32
	client := statusFunc(func(ctx context.Context, id int64) (*billing.StatusResponse, error) {
		atomic.AddInt32(&calls, 1)
		return &billing.StatusResponse{Status: "pending"}, nil
	})

	rec := newRecorder()
	poller := payment.NewPoller(client, 5*time.Millisecond, 5, testLogger())
	cancel := poller.Start(context.Background(), 77, rec.onTransition)
	defer cancel()

	snap := rec.waitTerminal(t)
	require.Equal(t, payment.StateTimedOut, snap.State)
	require.Equal(t, 5, snap.Attempt)

	// No query is dispatched after exhaustion.
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 5, atomic.LoadInt32(&calls))
}

func TestPoller_ActiveOnNthCall_StopsExactlyThere(t *testing.T) {
	var calls int32
	client := statusFunc(func(ctx context.Context, id int64) (*billing.StatusResponse, error) {
		n := atomic.AddInt32(&calls, 1)
		if n < 4 {
			return &billing.StatusResponse{Status: "pending"}, nil
		}
		return &billing.StatusResponse{
			Status:   "active",
			PlanName: "X",
			Expiry:   "2026-01-01T10:00:00Z",
		}, nil
	})

	rec := newRecorder()
	poller := payment.NewPoller(client, 5*time.Millisecond, 24, testLogger())
	cancel := poller.Start(context.Background(), 77, rec.onTransition)
	defer cancel()

	snap := rec.waitTerminal(t)
	require.Equal(t, payment.StateActive, snap.State)
	require.Equal(t, 4, snap.Attempt)
	require.NotNil(t, snap.Result)
	require.Equal(t, "X", snap.Result.PlanName)
	require.Equal(t, "2026-01-01T10:00:00Z", snap.Result.Expiry)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestPoller_ExplicitFailure(t *testing.T) {
	client := statusFunc(func(ctx context.Context, id int64) (*billing.StatusResponse, error) {
		return &billing.StatusResponse{Status: "failed", Message: "no credentials issued"}, nil
	})

	rec := newRecorder()
	poller := payment.NewPoller(client, 5*time.Millisecond, 24, testLogger())
	cancel := poller.Start(context.Background(), 77, rec.onTransition)
	defer cancel()

	snap := rec.waitTerminal(t)
	require.Equal(t, payment.StateFailed, snap.State)
	require.Equal(t, 1, snap.Attempt)
	require.Equal(t, "no credentials issued", snap.Detail)
}

func TestPoller_CancelledStatusIsExplicitFailure(t *testing.T) {
	var calls int32
	client := statusFunc(func(ctx context.Context, id int64) (*billing.StatusResponse, error) {
		atomic.AddInt32(&calls, 1)
		return &billing.StatusResponse{Status: "cancelled"}, nil
	})

	rec := newRecorder()
	poller := payment.NewPoller(client, 5*time.Millisecond, 24, testLogger())
	cancel := poller.Start(context.Background(), 77, rec.onTransition)
	defer cancel()

	snap := rec.waitTerminal(t)
	require.Equal(t, payment.StateFailed, snap.State)
	require.Equal(t, 1, snap.Attempt)
	require.Equal(t, "payment was not completed", snap.Detail)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestPoller_TickErrorsCountAgainstBudget(t *testing.T) {
	var calls int32
	client := statusFunc(func(ctx context.Context, id int64) (*billing.StatusResponse, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("connection reset")
	})

	rec := newRecorder()
	poller := payment.NewPoller(client, 5*time.Millisecond, 3, testLogger())
	cancel := poller.Start(context.Background(), 77, rec.onTransition)
	defer cancel()

	snap := rec.waitTerminal(t)
	require.Equal(t, payment.StateTimedOut, snap.State)
	require.Equal(t, 3, snap.Attempt)
	require.Contains(t, snap.Detail, "no response from payment service")
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestPoller_TimedOutWithoutErrorsHasDistinctReason(t *testing.T) {
	client := statusFunc(func(ctx context.Context, id int64) (*billing.StatusResponse, error) {
		return &billing.StatusResponse{Status: "pending"}, nil
	})

	rec := newRecorder()
	poller := payment.NewPoller(client, 5*time.Millisecond, 2, testLogger())
	cancel := poller.Start(context.Background(), 77, rec.onTransition)
	defer cancel()

	snap := rec.waitTerminal(t)
	require.Equal(t, payment.StateTimedOut, snap.State)
	require.NotContains(t, snap.Detail, "no response from payment service")
	require.Contains(t, snap.Detail, "not received in time")
}

func TestPoller_CancelSuppressesInFlightCallback(t *testing.T) {
	release := make(chan struct{})
	client := statusFunc(func(ctx context.Context, id int64) (*billing.StatusResponse, error) {
		<-release
		return &billing.StatusResponse{Status: "active", PlanName: "X"}, nil
	})

	rec := newRecorder()
	poller := payment.NewPoller(client, 5*time.Millisecond, 24, testLogger())
	cancel := poller.Start(context.Background(), 77, rec.onTransition)

	// Let the loop reach the blocked query, then cancel and resolve it.
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)
	time.Sleep(50 * time.Millisecond)

	for _, snap := range rec.all() {
		require.False(t, snap.State.Terminal(),
			"terminal callback delivered after cancellation: %+v", snap)
		require.Zero(t, snap.Attempt,
			"attempt callback delivered after cancellation: %+v", snap)
	}
}

func TestPoller_AttemptsAreMonotonic(t *testing.T) {
	var calls int32
	client := statusFunc(func(ctx context.Context, id int64) (*billing.StatusResponse, error) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return &billing.StatusResponse{Status: "pending"}, nil
		}
		return &billing.StatusResponse{Status: "active"}, nil
	})

	rec := newRecorder()
	poller := payment.NewPoller(client, 5*time.Millisecond, 24, testLogger())
	cancel := poller.Start(context.Background(), 77, rec.onTransition)
	defer cancel()

	rec.waitTerminal(t)

	prev := -1
	for _, snap := range rec.all() {
		require.GreaterOrEqual(t, snap.Attempt, prev)
		prev = snap.Attempt
	}
}
