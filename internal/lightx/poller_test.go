package lightx

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type step struct {
	state State
	err   error
}

// scriptedQuerier replays steps in order and reports pending once they run out.
type scriptedQuerier struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (q *scriptedQuerier) OrderStatus(_ context.Context, _ string, orderID string) (*JobStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	s := step{state: StatePending}
	if q.calls <= len(q.steps) {
		s = q.steps[q.calls-1]
	}
	if s.err != nil {
		return nil, s.err
	}
	status := &JobStatus{OrderID: orderID, State: s.state, RawStatus: string(s.state)}
	if s.state == StateActive {
		status.OutputURL = "https://cdn/out.jpg"
	}
	return status, nil
}

var transient = &Error{Kind: ErrTransport, HTTPStatus: http.StatusServiceUnavailable}

func newScriptedPoller(q StatusQuerier, attempts int, interval time.Duration, sleeps *[]time.Duration) *Poller {
	return NewPoller(q, PollerOptions{
		Policy: RetryPolicy{MaxAttempts: attempts, Interval: interval},
		Sleep:  noSleep(sleeps),
	})
}

func TestPollReturnsActiveWithoutExtraQuery(t *testing.T) {
	q := &scriptedQuerier{steps: []step{{state: StatePending}, {err: transient}, {state: StateActive}}}
	var sleeps []time.Duration
	p := newScriptedPoller(q, 5, 3*time.Second, &sleeps)

	status, err := p.Poll(context.Background(), JobHandle{OrderID: "abc", Endpoint: "v1/outfit"})
	require.NoError(t, err)
	assert.Equal(t, StateActive, status.State)
	assert.Equal(t, "https://cdn/out.jpg", status.OutputURL)
	assert.Equal(t, 3, q.calls)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeps)
}

func TestPollFailedIsTerminalWithBudgetLeft(t *testing.T) {
	q := &scriptedQuerier{steps: []step{{state: StateFailed}}}
	var sleeps []time.Duration
	p := newScriptedPoller(q, 5, time.Second, &sleeps)

	_, err := p.Poll(context.Background(), JobHandle{OrderID: "abc"})
	require.ErrorIs(t, err, ErrJobFailed)
	assert.Equal(t, 1, q.calls)
	assert.Empty(t, sleeps)

	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 1, lerr.Attempts)
	assert.Equal(t, StateFailed, lerr.Last.State)
}

func TestPollExhaustedCarriesLastStatus(t *testing.T) {
	q := &scriptedQuerier{steps: []step{{state: StatePending}, {state: StatePending}, {err: transient}}}
	var sleeps []time.Duration
	p := newScriptedPoller(q, 3, 2*time.Second, &sleeps)

	_, err := p.Poll(context.Background(), JobHandle{OrderID: "abc"})
	require.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 3, q.calls)
	assert.Len(t, sleeps, 2)

	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 3, lerr.Attempts)
	assert.Equal(t, "abc", lerr.OrderID)
	require.NotNil(t, lerr.Last)
	assert.Equal(t, StatePending, lerr.Last.State)
}

func TestPollAbortsOnNonRetryableError(t *testing.T) {
	notFound := &Error{Kind: ErrTransport, HTTPStatus: http.StatusNotFound}
	malformed := &Error{Kind: ErrMalformedResponse}
	for _, fatal := range []error{notFound, malformed} {
		q := &scriptedQuerier{steps: []step{{state: StatePending}, {err: fatal}}}
		var sleeps []time.Duration
		p := newScriptedPoller(q, 5, time.Second, &sleeps)

		_, err := p.Poll(context.Background(), JobHandle{OrderID: "abc"})
		require.True(t, errors.Is(err, fatal))
		assert.Equal(t, 2, q.calls)
	}
}

func TestPollStopsWhenContextCanceled(t *testing.T) {
	q := &scriptedQuerier{}
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(q, PollerOptions{
		Policy: RetryPolicy{MaxAttempts: 5, Interval: time.Second},
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	_, err := p.Poll(ctx, JobHandle{OrderID: "abc"})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 1, q.calls)
}

func TestPollRealSleepHonorsInterval(t *testing.T) {
	q := &scriptedQuerier{}
	p := NewPoller(q, PollerOptions{Policy: RetryPolicy{MaxAttempts: 3, Interval: 20 * time.Millisecond}})

	started := time.Now()
	_, err := p.Poll(context.Background(), JobHandle{OrderID: "abc"})
	elapsed := time.Since(started)
	require.ErrorIs(t, err, ErrRetryExhausted)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestSleepContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	require.NoError(t, sleepContext(context.Background(), 0))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomePending, classify(&JobStatus{State: StatePending}, nil).Kind)
	assert.Equal(t, OutcomeActive, classify(&JobStatus{State: StateActive}, nil).Kind)
	assert.Equal(t, OutcomeFailed, classify(&JobStatus{State: StateFailed}, nil).Kind)
	assert.Equal(t, OutcomeRetryable, classify(nil, transient).Kind)
	assert.Equal(t, OutcomeFatal, classify(nil, &Error{Kind: ErrMalformedResponse}).Kind)
	assert.Equal(t, OutcomeFatal, classify(nil, nil).Kind)
	assert.Equal(t, "retryable_error", OutcomeRetryable.String())
}

// TestPollSequences checks the loop against a reference model for arbitrary
// response sequences and budgets.
func TestPollSequences(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxAttempts := rapid.IntRange(1, 8).Draw(t, "maxAttempts")
		kinds := rapid.SliceOfN(rapid.SampledFrom([]string{"pending", "transient", "active", "failed"}), 0, 12).Draw(t, "sequence")

		steps := make([]step, len(kinds))
		for i, k := range kinds {
			switch k {
			case "pending":
				steps[i] = step{state: StatePending}
			case "transient":
				steps[i] = step{err: transient}
			case "active":
				steps[i] = step{state: StateActive}
			case "failed":
				steps[i] = step{state: StateFailed}
			}
		}

		// reference model: the first terminal state within the budget wins
		wantCalls, wantKind := maxAttempts, "exhausted"
		for i := 0; i < maxAttempts && i < len(kinds); i++ {
			if kinds[i] == "active" || kinds[i] == "failed" {
				wantCalls, wantKind = i+1, kinds[i]
				break
			}
		}

		q := &scriptedQuerier{steps: steps}
		var sleeps []time.Duration
		interval := 3 * time.Second
		p := newScriptedPoller(q, maxAttempts, interval, &sleeps)

		status, err := p.Poll(context.Background(), JobHandle{OrderID: "abc"})
		require.Equal(t, wantCalls, q.calls)
		require.Len(t, sleeps, wantCalls-1)

		switch wantKind {
		case "active":
			require.NoError(t, err)
			require.Equal(t, StateActive, status.State)
		case "failed":
			require.ErrorIs(t, err, ErrJobFailed)
		default:
			require.ErrorIs(t, err, ErrRetryExhausted)
			var total time.Duration
			for _, d := range sleeps {
				total += d
			}
			require.Equal(t, time.Duration(maxAttempts-1)*interval, total)
		}
	})
}
