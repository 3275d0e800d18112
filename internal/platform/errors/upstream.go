package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// StatusError wraps a non-2xx HTTP response from the upstream catalog
// Body carries a bounded diagnostic tail, never the full payload
type StatusError struct {
	Status int
	Body   string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// HTTPStatus returns the upstream status code
func (e *StatusError) HTTPStatus() int { return e.Status }

// UpstreamStatus wraps a StatusError into a coded *Error
func UpstreamStatus(status int, body string) error {
	se := &StatusError{Status: status, Body: body}
	switch status {
	case http.StatusTooManyRequests:
		return Wrapf(se, ErrorCodeTooManyRequests, "upstream rate limited")
	case http.StatusUnauthorized, http.StatusForbidden:
		return Wrapf(se, ErrorCodeUpstreamAuth, "upstream rejected credentials")
	default:
		return Wrapf(se, ErrorCodeUpstream, "upstream request failed")
	}
}

// StatusOf extracts the upstream status from err, or 0 when err carries none
func StatusOf(err error) int {
	var se *StatusError
	if stderrs.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsRateLimited reports whether err is an upstream 429 after retries
func IsRateLimited(err error) bool {
	return IsCode(err, ErrorCodeTooManyRequests) || StatusOf(err) == http.StatusTooManyRequests
}
