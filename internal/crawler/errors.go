package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies why a source failed.
type ErrorKind string

// Error kinds surfaced in reports.
const (
	KindInvalidQuery       ErrorKind = "InvalidQuery"
	KindTimeout            ErrorKind = "Timeout"
	KindRateLimited        ErrorKind = "RateLimited"
	KindBlocked            ErrorKind = "Blocked"
	KindBrowserUnavailable ErrorKind = "BrowserUnavailable"
	KindParseFailure       ErrorKind = "ParseFailure"
	KindCancelled          ErrorKind = "Cancelled"
	KindNetwork            ErrorKind = "NetworkError"
)

var (
	// ErrInvalidQuery is returned before dispatch when a query fails validation.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoAdapters is returned when no source adapter can serve a query.
	ErrNoAdapters = errors.New("no source adapters available")
)

// SourceError is an adapter-level failure. It never escapes the engine as a
// process-level fault; it ends up in Report.Errors.
type SourceError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

// NewSourceError wraps err with a kind and detail text.
func NewSourceError(kind ErrorKind, err error, format string, args ...any) *SourceError {
	return &SourceError{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

func (e *SourceError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Throttling reports whether the failure signals the platform is pushing back.
func (e *SourceError) Throttling() bool {
	return e != nil && (e.Kind == KindRateLimited || e.Kind == KindBlocked)
}

// HTTPStatusError is implemented by transport errors that carry a status code.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

// Classify maps any error to a SourceError. Context errors become Timeout or
// Cancelled, HTTP 429 becomes RateLimited, other 4xx Blocked, and transport
// failures NetworkError.
func Classify(err error) *SourceError {
	if err == nil {
		return nil
	}
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return srcErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &SourceError{Kind: KindTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &SourceError{Kind: KindCancelled, Err: err}
	}
	var statusErr HTTPStatusError
	if errors.As(err, &statusErr) {
		code := statusErr.HTTPStatus()
		switch {
		case code == http.StatusTooManyRequests:
			return &SourceError{Kind: KindRateLimited, Detail: fmt.Sprintf("HTTP %d", code), Err: err}
		case code >= 400 && code < 500:
			return &SourceError{Kind: KindBlocked, Detail: fmt.Sprintf("HTTP %d", code), Err: err}
		default:
			return &SourceError{Kind: KindNetwork, Detail: fmt.Sprintf("HTTP %d", code), Err: err}
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &SourceError{Kind: KindTimeout, Err: err}
	}
	return &SourceError{Kind: KindNetwork, Detail: err.Error(), Err: err}
}
