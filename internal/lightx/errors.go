package lightx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. Match them with errors.Is; the concrete *Error carries the
// request details.
var (
	ErrMissingAPIKey          = errors.New("api key is required")
	ErrInvalidParams          = errors.New("invalid parameters")
	ErrSizeExceeded           = errors.New("asset exceeds size limit")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrTransport              = errors.New("transport failure")
	ErrSubmissionRejected     = errors.New("submission rejected")
	ErrJobFailed              = errors.New("job failed")
	ErrRetryExhausted         = errors.New("retry budget exhausted")
	ErrMalformedResponse      = errors.New("malformed response")
)

var kinds = []error{
	ErrMissingAPIKey,
	ErrInvalidParams,
	ErrSizeExceeded,
	ErrUnsupportedContentType,
	ErrTransport,
	ErrSubmissionRejected,
	ErrJobFailed,
	ErrRetryExhausted,
	ErrMalformedResponse,
}

// Error describes a failed step of the upload, submit or poll workflow.
type Error struct {
	Kind       error
	Op         string
	Endpoint   string
	HTTPStatus int
	Code       int
	Message    string
	OrderID    string
	Attempts   int
	Last       *JobStatus
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("lightx: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("error")
	}
	if e.OrderID != "" {
		fmt.Fprintf(&b, " (order %s)", e.OrderID)
	}
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " http %d", e.HTTPStatus)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " code %d", e.Code)
	}
	if e.Attempts > 0 {
		fmt.Fprintf(&b, " after %d attempt(s)", e.Attempts)
	}
	if e.Last != nil && e.Last.RawStatus != "" {
		fmt.Fprintf(&b, " last status %q", e.Last.RawStatus)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Kind returns the sentinel kind err matches, or nil for errors that did not
// originate in this package.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName returns a short snake_case label for err, used in logs and metrics.
func KindName(err error) string {
	switch Kind(err) {
	case nil:
		if err == nil {
			return "ok"
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "canceled"
		}
		return "unknown"
	case ErrMissingAPIKey:
		return "missing_api_key"
	case ErrInvalidParams:
		return "invalid_params"
	case ErrSizeExceeded:
		return "size_exceeded"
	case ErrUnsupportedContentType:
		return "unsupported_content_type"
	case ErrTransport:
		return "transport"
	case ErrSubmissionRejected:
		return "submission_rejected"
	case ErrJobFailed:
		return "job_failed"
	case ErrRetryExhausted:
		return "retry_exhausted"
	case ErrMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// InvalidParamsf builds an ErrInvalidParams error for catalog validators.
func InvalidParamsf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// retryable reports whether a failed status query may be repeated within the
// poll budget. Network failures, 5xx, 408, 429 and embedded service codes are
// transient; other 4xx and undecodable bodies are not.
func retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if !errors.Is(e.Kind, ErrTransport) {
		return false
	}
	switch {
	case e.HTTPStatus == 0:
		return true
	case e.HTTPStatus >= http.StatusInternalServerError:
		return true
	case e.HTTPStatus == http.StatusTooManyRequests, e.HTTPStatus == http.StatusRequestTimeout:
		return true
	case e.HTTPStatus < http.StatusMultipleChoices:
		return true
	default:
		return false
	}
}
