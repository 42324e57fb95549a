package lightx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

// fakeAPI emulates the LightX endpoints and the pre-signed object store.
type fakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	calls         []string
	uploadCode    int
	submitCode    int
	submitMessage string
	putStatus     int
	statuses      []string
	output        string
	orderID       string
	putTypes      []string
	putBodies     [][]byte
	registered    []uploadSlotRequest
	submitted     []map[string]any
	statusOrders  []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		t:          t,
		uploadCode: serviceSuccessCode,
		submitCode: serviceSuccessCode,
		putStatus:  http.StatusOK,
		orderID:    "abc",
		output:     "https://cdn/out.jpg",
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodPut && strings.HasPrefix(path, "store/"):
		f.calls = append(f.calls, "put")
		body, _ := io.ReadAll(r.Body)
		f.putTypes = append(f.putTypes, r.Header.Get("Content-Type"))
		f.putBodies = append(f.putBodies, body)
		w.WriteHeader(f.putStatus)
		return
	case r.Header.Get(apiKeyHeader) != testAPIKey:
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad key"}`))
		return
	}

	switch {
	case path == DefaultUploadEndpoint:
		f.calls = append(f.calls, "register")
		var req uploadSlotRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.registered = append(f.registered, req)
		n := len(f.registered)
		writeEnvelope(w, f.uploadCode, "upload refused", map[string]any{
			"uploadImage": fmt.Sprintf("%s/store/%d", f.server.URL, n),
			"imageUrl":    fmt.Sprintf("https://cdn/in-%d.jpg", n),
		})
	case strings.HasSuffix(path, "order-status"):
		f.calls = append(f.calls, "status:"+path)
		var req statusRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.statusOrders = append(f.statusOrders, req.OrderID)
		state := "init"
		if len(f.statuses) > 0 {
			state = f.statuses[0]
			if len(f.statuses) > 1 {
				f.statuses = f.statuses[1:]
			}
		}
		body := map[string]any{"orderId": req.OrderID, "status": state}
		if state == "active" {
			body["output"] = f.output
		}
		writeEnvelope(w, serviceSuccessCode, "", body)
	default:
		f.calls = append(f.calls, "submit:"+path)
		var payload map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&payload))
		f.submitted = append(f.submitted, payload)
		writeEnvelope(w, f.submitCode, f.submitMessage, map[string]any{
			"orderId":              f.orderID,
			"maxRetriesAllowed":    5,
			"avgResponseTimeInSec": 15,
			"status":               "init",
		})
	}
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) count(prefix string) int {
	n := 0
	for _, c := range f.callLog() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func writeEnvelope(w http.ResponseWriter, code int, message string, body any) {
	w.Header().Set("Content-Type", "application/json")
	out := map[string]any{"statusCode": code}
	if message != "" && code != serviceSuccessCode {
		out["message"] = message
	}
	if code == serviceSuccessCode {
		out["body"] = body
	}
	_ = json.NewEncoder(w).Encode(out)
}

// captureTransport records every outgoing request before delegating.
type captureTransport struct {
	mu       sync.Mutex
	base     http.RoundTripper
	requests []*http.Request
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req.Clone(req.Context()))
	c.mu.Unlock()
	base := c.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func (c *captureTransport) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func newTestClient(t *testing.T, baseURL string, rt http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:     testAPIKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Transport: rt, Timeout: 5 * time.Second},
	})
	require.NoError(t, err)
	return client
}

// pngBytes returns a buffer that sniffs as image/png, padded to size.
func pngBytes(size int) []byte {
	header := []byte("\x89PNG\r\n\x1a\n")
	if size < len(header) {
		size = len(header)
	}
	data := make([]byte, size)
	copy(data, header)
	return data
}

func noSleep(sleeps *[]time.Duration) SleepFunc {
	var mu sync.Mutex
	return func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		*sleeps = append(*sleeps, d)
		mu.Unlock()
		return ctx.Err()
	}
}
