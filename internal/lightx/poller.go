package lightx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imagejobs/internal/infra"
)

// StatusQuerier performs a single status query. *Client satisfies it.
type StatusQuerier interface {
	OrderStatus(ctx context.Context, statusEndpoint, orderID string) (*JobStatus, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// OutcomeKind tags the result of one poll step.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeActive
	OutcomeFailed
	OutcomeRetryable
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePending:
		return "pending"
	case OutcomeActive:
		return "active"
	case OutcomeFailed:
		return "failed"
	case OutcomeRetryable:
		return "retryable_error"
	case OutcomeFatal:
		return "fatal_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is one classified status query. Status is set for the three job
// states and Err for the two error kinds.
type Outcome struct {
	Kind   OutcomeKind
	Status *JobStatus
	Err    error
}

func classify(status *JobStatus, err error) Outcome {
	if err != nil {
		if retryable(err) {
			return Outcome{Kind: OutcomeRetryable, Err: err}
		}
		return Outcome{Kind: OutcomeFatal, Err: err}
	}
	if status == nil {
		return Outcome{Kind: OutcomeFatal, Err: &Error{Kind: ErrMalformedResponse, Op: "order status", Message: "empty status"}}
	}
	switch status.State {
	case StateActive:
		return Outcome{Kind: OutcomeActive, Status: status}
	case StateFailed:
		return Outcome{Kind: OutcomeFailed, Status: status}
	default:
		return Outcome{Kind: OutcomePending, Status: status}
	}
}

// PollerOptions configures a Poller. Zero values select the defaults.
type PollerOptions struct {
	Policy   RetryPolicy
	Sleep    SleepFunc
	Logger   *infra.Logger
	Observer Observer
}

// Poller drives a submitted order to a terminal state within a fixed budget
// of status queries. Pending responses and transient query errors draw from
// the same budget.
type Poller struct {
	querier  StatusQuerier
	policy   RetryPolicy
	sleep    SleepFunc
	logger   *infra.Logger
	observer Observer
}

// NewPoller returns a poller that queries through q.
func NewPoller(q StatusQuerier, opts PollerOptions) *Poller {
	p := &Poller{
		querier:  q,
		policy:   opts.Policy.normalized(),
		sleep:    opts.Sleep,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	if p.logger == nil {
		p.logger = infra.NopLogger()
	}
	if p.observer == nil {
		p.observer = NopObserver()
	}
	return p
}

// Policy returns the effective retry policy.
func (p *Poller) Policy() RetryPolicy {
	return p.policy
}

// Step performs one status query and classifies the answer.
func (p *Poller) Step(ctx context.Context, statusEndpoint, orderID string) Outcome {
	return classify(p.querier.OrderStatus(ctx, statusEndpoint, orderID))
}

// Poll queries the order until it is active, failed, or the budget is spent.
// Active returns the snapshot. Failed returns ErrJobFailed immediately.
// Exhaustion returns ErrRetryExhausted with the attempt count and the last
// observed status.
func (p *Poller) Poll(ctx context.Context, handle JobHandle) (*JobStatus, error) {
	status, _, err := p.poll(ctx, handle.Endpoint, handle)
	return status, err
}

func (p *Poller) poll(ctx context.Context, label string, handle JobHandle) (*JobStatus, int, error) {
	statusEndpoint := handle.StatusEndpoint
	if statusEndpoint == "" {
		statusEndpoint = statusEndpointFor(handle.Endpoint)
	}
	log := p.logger.With().Str("order_id", handle.OrderID).Str("operation", label).Logger()

	var (
		attempts int
		last     *JobStatus
	)
	for attempts < p.policy.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, attempts, canceled(handle.OrderID, attempts, err)
		}

		outcome := p.Step(ctx, statusEndpoint, handle.OrderID)
		attempts++
		p.observer.PollStep(label, outcome.Kind)

		switch outcome.Kind {
		case OutcomeActive:
			log.Info().Int("attempts", attempts).Msg("lightx: order active")
			return outcome.Status, attempts, nil
		case OutcomeFailed:
			log.Warn().Int("attempts", attempts).Str("status", outcome.Status.RawStatus).Msg("lightx: order failed")
			return nil, attempts, &Error{
				Kind:     ErrJobFailed,
				Op:       "poll",
				OrderID:  handle.OrderID,
				Attempts: attempts,
				Last:     outcome.Status,
			}
		case OutcomeFatal:
			if err := ctx.Err(); err != nil {
				return nil, attempts, canceled(handle.OrderID, attempts, err)
			}
			return nil, attempts, outcome.Err
		case OutcomeRetryable:
			if err := ctx.Err(); err != nil {
				return nil, attempts, canceled(handle.OrderID, attempts, err)
			}
			log.Warn().Err(outcome.Err).Int("attempt", attempts).Msg("lightx: status query failed")
		case OutcomePending:
			last = outcome.Status
			log.Debug().Int("attempt", attempts).Str("status", outcome.Status.RawStatus).Msg("lightx: order pending")
		}

		if attempts >= p.policy.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, p.policy.Interval); err != nil {
			return nil, attempts, canceled(handle.OrderID, attempts, err)
		}
	}

	log.Warn().Int("attempts", attempts).Msg("lightx: poll budget exhausted")
	return nil, attempts, &Error{
		Kind:     ErrRetryExhausted,
		Op:       "poll",
		OrderID:  handle.OrderID,
		Attempts: attempts,
		Last:     last,
	}
}

func canceled(orderID string, attempts int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("lightx: poll order %s stopped after %d attempt(s): %w", orderID, attempts, err)
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
