package lightx

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type submitBody struct {
	OrderID              string  `json:"orderId"`
	MaxRetriesAllowed    float64 `json:"maxRetriesAllowed"`
	AvgResponseTimeInSec float64 `json:"avgResponseTimeInSec"`
	Status               string  `json:"status"`
}

// Submit creates an order at endpoint with an already validated payload.
// A non-success service code fails with ErrSubmissionRejected. Submit never
// retries: a second call creates a second order.
func (c *Client) Submit(ctx context.Context, endpoint string, payload map[string]any) (*JobHandle, error) {
	const op = "submit"
	endpoint = strings.TrimLeft(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, &Error{Kind: ErrInvalidParams, Op: op, Message: "endpoint is required"}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	env, err := c.postJSON(ctx, op, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if env.StatusCode != serviceSuccessCode {
		return nil, &Error{
			Kind:       ErrSubmissionRejected,
			Op:         op,
			Endpoint:   endpoint,
			HTTPStatus: http.StatusOK,
			Code:       env.StatusCode,
			Message:    env.message(),
		}
	}
	var body submitBody
	if err := decodeBody(op, endpoint, env, &body); err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(body.OrderID)
	if orderID == "" {
		return nil, &Error{Kind: ErrMalformedResponse, Op: op, Endpoint: endpoint, Message: "orderId missing"}
	}
	handle := &JobHandle{
		OrderID:           orderID,
		Endpoint:          endpoint,
		StatusEndpoint:    statusEndpointFor(endpoint),
		MaxRetriesAllowed: int(body.MaxRetriesAllowed),
		AvgResponseTime:   time.Duration(body.AvgResponseTimeInSec * float64(time.Second)),
		InitialStatus:     ParseState(body.Status),
		RawStatus:         body.Status,
	}
	c.logger.Info().
		Str("endpoint", endpoint).
		Str("order_id", handle.OrderID).
		Int("max_retries_allowed", handle.MaxRetriesAllowed).
		Dur("avg_response_time", handle.AvgResponseTime).
		Str("status", handle.RawStatus).
		Msg("lightx: order created")
	return handle, nil
}
