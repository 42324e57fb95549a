package handlers

import (
	"context"
	"errors"
	"net/http"

	"imagejobs/internal/adapter/repo"
	"imagejobs/internal/lightx"
)

// StatusFor maps an error kind to the HTTP status returned to API callers.
func StatusFor(err error) int {
	switch lightx.Kind(err) {
	case lightx.ErrInvalidParams, lightx.ErrSizeExceeded, lightx.ErrUnsupportedContentType:
		return http.StatusBadRequest
	case lightx.ErrSubmissionRejected, lightx.ErrJobFailed:
		return http.StatusUnprocessableEntity
	case lightx.ErrRetryExhausted:
		return http.StatusGatewayTimeout
	case lightx.ErrTransport, lightx.ErrMalformedResponse:
		return http.StatusBadGateway
	case lightx.ErrMissingAPIKey:
		return http.StatusServiceUnavailable
	}
	switch {
	case errors.Is(err, repo.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away; the status is only logged
		return 499
	default:
		return http.StatusInternalServerError
	}
}
