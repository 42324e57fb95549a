package lightx

import (
	"strings"
	"time"
)

// State is the client-side view of an order's lifecycle. Active and Failed
// are terminal.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
	StateFailed  State = "failed"
)

// ParseState maps the service's raw status onto a State. The service reports
// "init" while a job is queued; anything unrecognized is treated as pending.
func ParseState(raw string) State {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return StateActive
	case "failed":
		return StateFailed
	default:
		return StatePending
	}
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == StateActive || s == StateFailed
}

// UploadSlot is a pre-signed location returned by the upload registration call.
type UploadSlot struct {
	UploadURL string
	AssetURL  string
}

// JobHandle identifies a submitted order. The retry and timing hints come from
// the service and are informational only; the poll budget is set client side.
type JobHandle struct {
	OrderID           string
	Endpoint          string
	StatusEndpoint    string
	MaxRetriesAllowed int
	AvgResponseTime   time.Duration
	InitialStatus     State
	RawStatus         string
}

// JobStatus is one observed snapshot of an order.
type JobStatus struct {
	OrderID   string `json:"order_id"`
	State     State  `json:"state"`
	RawStatus string `json:"raw_status"`
	OutputURL string `json:"output_url,omitempty"`
	MaskURL   string `json:"mask_url,omitempty"`
}

// RetryPolicy bounds the poll loop: at most MaxAttempts status queries with a
// fixed Interval between them.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

const (
	DefaultMaxAttempts  = 5
	DefaultPollInterval = 3 * time.Second
)

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Interval < 0 {
		p.Interval = 0
	}
	return p
}

// statusEndpointFor derives the order-status path from a feature endpoint's
// API version prefix.
func statusEndpointFor(endpoint string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(endpoint), "/")
	if strings.HasPrefix(trimmed, "v1/") {
		return "v1/order-status"
	}
	return "v2/order-status"
}
