package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTooManyRedirects is returned when a fetch exceeds the redirect cap
var ErrTooManyRedirects = errors.New("too many redirects")

// ErrorKind tags the failure class of a fetch
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindNetwork    ErrorKind = "network"
	KindHTTPStatus ErrorKind = "http_status"
	KindRedirects  ErrorKind = "redirects"
	KindParse      ErrorKind = "parse"
	KindConfig     ErrorKind = "config"
)

// FetchError is the tagged failure for a single source or URL
type FetchError struct {
	SourceID   string
	URL        string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("source %s: %s: HTTP %d", e.SourceID, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("source %s: %s: %s: %v", e.SourceID, e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// classify maps a transport error onto a kind
func classify(err error) ErrorKind {
	if errors.Is(err, ErrTooManyRedirects) {
		return KindRedirects
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
