package lightx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"imagejobs/internal/infra"
)

const (
	DefaultBaseURL        = "https://api.lightxeditor.com/external/api"
	DefaultUploadEndpoint = "v2/uploadImageUrl"

	// DefaultMaxDownloadBytes caps how much of an output asset Download reads.
	DefaultMaxDownloadBytes int64 = 64 << 20

	serviceSuccessCode = 2000
	maxResponseBytes   = 1 << 20
	apiKeyHeader       = "x-api-key"
)

// Options configures the LightX client.
type Options struct {
	APIKey           string
	BaseURL          string
	UploadEndpoint   string
	MaxUploadBytes   int64
	MaxDownloadBytes int64
	ContentTypes     []string
	HTTPClient       *http.Client
	Logger           *infra.Logger
	RequestTimeout   time.Duration
}

// Client performs the upload, submit and status calls against the LightX API.
// It holds no per-job state and is safe for concurrent use.
type Client struct {
	apiKey           string
	baseURL          string
	uploadEndpoint   string
	maxUploadBytes   int64
	maxDownloadBytes int64
	contentTypes     []string
	httpClient       *http.Client
	logger           *infra.Logger
}

// envelope is the response wrapper shared by every API endpoint. A 2xx
// transport status can still carry a failing statusCode.
type envelope struct {
	StatusCode  int             `json:"statusCode"`
	Message     string          `json:"message"`
	Description string          `json:"description"`
	Body        json.RawMessage `json:"body"`
}

func (e envelope) message() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Description)
}

// NewClient constructs a client with defaults applied.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, &Error{Kind: ErrMissingAPIKey, Op: "configure client"}
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("lightx: invalid base url: %w", err)
	}
	uploadEndpoint := strings.TrimSpace(opts.UploadEndpoint)
	if uploadEndpoint == "" {
		uploadEndpoint = DefaultUploadEndpoint
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	maxDownload := opts.MaxDownloadBytes
	if maxDownload <= 0 {
		maxDownload = DefaultMaxDownloadBytes
	}
	contentTypes := DefaultContentTypes
	if len(opts.ContentTypes) > 0 {
		contentTypes = make([]string, 0, len(opts.ContentTypes))
		for _, ct := range opts.ContentTypes {
			contentTypes = append(contentTypes, NormalizeContentType(ct))
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:           apiKey,
		baseURL:          baseURL,
		uploadEndpoint:   uploadEndpoint,
		maxUploadBytes:   maxUpload,
		maxDownloadBytes: maxDownload,
		contentTypes:     contentTypes,
		httpClient:       httpClient,
		logger:           logger,
	}, nil
}

// MaxUploadBytes returns the configured size ceiling.
func (c *Client) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

func (c *Client) endpointURL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(strings.TrimSpace(endpoint), "/")
}

// postJSON sends payload to endpoint and decodes the response envelope. Only
// transport-level failures are reported here; callers interpret StatusCode.
func (c *Client) postJSON(ctx context.Context, op, endpoint string, payload any) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("lightx: %s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lightx: %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Op: op, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Op: op, Endpoint: endpoint, HTTPStatus: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		var detail envelope
		msg := strings.TrimSpace(string(raw))
		if err := json.Unmarshal(raw, &detail); err == nil && detail.message() != "" {
			msg = detail.message()
		}
		return nil, &Error{
			Kind:       ErrTransport,
			Op:         op,
			Endpoint:   endpoint,
			HTTPStatus: resp.StatusCode,
			Code:       detail.StatusCode,
			Message:    truncate(msg, 256),
		}
	}

	var decoded envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &Error{Kind: ErrMalformedResponse, Op: op, Endpoint: endpoint, HTTPStatus: resp.StatusCode, Err: err}
	}
	return &decoded, nil
}

// decodeBody unmarshals an envelope body into out, reporting malformed bodies.
func decodeBody(op, endpoint string, env *envelope, out any) error {
	if len(env.Body) == 0 || string(env.Body) == "null" {
		return &Error{Kind: ErrMalformedResponse, Op: op, Endpoint: endpoint, Message: "response body missing"}
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return &Error{Kind: ErrMalformedResponse, Op: op, Endpoint: endpoint, Err: err}
	}
	return nil
}

// Download fetches an output asset. It is not part of the job workflow; the
// CLI uses it to persist results locally.
func (c *Client) Download(ctx context.Context, assetURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(assetURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("lightx: invalid asset url: %s", assetURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("lightx: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &Error{Kind: ErrTransport, Op: "download", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", &Error{Kind: ErrTransport, Op: "download", HTTPStatus: resp.StatusCode}
	}
	if resp.ContentLength > c.maxDownloadBytes {
		return nil, "", c.downloadTooLarge()
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownloadBytes+1))
	if err != nil {
		return nil, "", &Error{Kind: ErrTransport, Op: "download", Err: err}
	}
	if int64(len(data)) > c.maxDownloadBytes {
		return nil, "", c.downloadTooLarge()
	}
	format := NormalizeContentType(resp.Header.Get("Content-Type"))
	if format == "" || format == "application/octet-stream" {
		format = NormalizeContentType(mimetype.Detect(data).String())
	}
	return data, format, nil
}

func (c *Client) downloadTooLarge() error {
	return &Error{Kind: ErrSizeExceeded, Op: "download", Message: fmt.Sprintf("output exceeds %d bytes", c.maxDownloadBytes)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
