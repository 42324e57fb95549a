package lightx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsHandle(t *testing.T) {
	api := newFakeAPI(t)
	client := newTestClient(t, api.server.URL, nil)

	handle, err := client.Submit(context.Background(), "/v2/upscale/", map[string]any{"imageUrl": "https://cdn/a.jpg", "quality": 4})
	require.NoError(t, err)
	assert.Equal(t, "abc", handle.OrderID)
	assert.Equal(t, "v2/upscale/", handle.Endpoint)
	assert.Equal(t, "v2/order-status", handle.StatusEndpoint)
	assert.Equal(t, 5, handle.MaxRetriesAllowed)
	assert.Equal(t, 15*time.Second, handle.AvgResponseTime)
	assert.Equal(t, StatePending, handle.InitialStatus)

	require.Len(t, api.submitted, 1)
	assert.Equal(t, "https://cdn/a.jpg", api.submitted[0]["imageUrl"])
	assert.EqualValues(t, 4, api.submitted[0]["quality"])
}

func TestSubmitRejected(t *testing.T) {
	api := newFakeAPI(t)
	api.submitCode = 4000
	api.submitMessage = "insufficient credits"
	client := newTestClient(t, api.server.URL, nil)

	handle, err := client.Submit(context.Background(), "v1/outfit", map[string]any{"textPrompt": "suit"})
	require.ErrorIs(t, err, ErrSubmissionRejected)
	assert.Nil(t, handle)

	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 4000, lerr.Code)
	assert.Equal(t, "insufficient credits", lerr.Message)
}

func TestSubmitMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"not json":      `<html>oops</html>`,
		"missing body":  `{"statusCode":2000}`,
		"empty orderId": `{"statusCode":2000,"body":{"orderId":""}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(payload))
			}))
			defer srv.Close()
			client := newTestClient(t, srv.URL, nil)

			_, err := client.Submit(context.Background(), "v1/outfit", nil)
			require.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestSubmitHTTPFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"statusCode":5030,"message":"maintenance"}`))
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL, nil)

	_, err := client.Submit(context.Background(), "v1/outfit", nil)
	require.ErrorIs(t, err, ErrTransport)

	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, http.StatusServiceUnavailable, lerr.HTTPStatus)
	assert.Equal(t, "maintenance", lerr.Message)
}
