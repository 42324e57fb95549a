package lightx

import (
	"context"
	"net/http"
	"strings"
)

type statusRequest struct {
	OrderID string `json:"orderId"`
}

type statusBody struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Output  string `json:"output"`
	Mask    string `json:"mask"`
}

// OrderStatus performs a single status query. Observing an order does not
// change it, so repeated calls for a finished order return the same snapshot.
func (c *Client) OrderStatus(ctx context.Context, statusEndpoint, orderID string) (*JobStatus, error) {
	const op = "order status"
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, &Error{Kind: ErrInvalidParams, Op: op, Message: "order id is required"}
	}
	statusEndpoint = strings.TrimLeft(strings.TrimSpace(statusEndpoint), "/")
	if statusEndpoint == "" {
		statusEndpoint = statusEndpointFor("")
	}
	env, err := c.postJSON(ctx, op, statusEndpoint, statusRequest{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	if env.StatusCode != serviceSuccessCode {
		return nil, &Error{
			Kind:       ErrTransport,
			Op:         op,
			Endpoint:   statusEndpoint,
			HTTPStatus: http.StatusOK,
			Code:       env.StatusCode,
			Message:    env.message(),
			OrderID:    orderID,
		}
	}
	var body statusBody
	if err := decodeBody(op, statusEndpoint, env, &body); err != nil {
		return nil, err
	}
	return &JobStatus{
		OrderID:   orderID,
		State:     ParseState(body.Status),
		RawStatus: strings.TrimSpace(body.Status),
		OutputURL: strings.TrimSpace(body.Output),
		MaskURL:   strings.TrimSpace(body.Mask),
	}, nil
}
