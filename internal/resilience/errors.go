package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"strconv"
	"syscall"
	"time"
)

// TransientError marks a failure worth retrying: throttling, an overloaded
// or failing upstream, a dropped connection, or an unparsable completion.
// StatusCode is 0 when no HTTP status was involved. RetryAfter is the
// server's requested wait, if it sent one.
type TransientError struct {
	Err        error
	StatusCode int
	RetryAfter time.Duration
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a structural failure such as a bad request, a missing
// credential or a broken template. It is never retried.
type FatalError struct {
	Err        error
	StatusCode int
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// NewTransientError marks err transient.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// NewFatalError marks err fatal.
func NewFatalError(err error, statusCode int) *FatalError {
	return &FatalError{Err: err, StatusCode: statusCode}
}

// IsFatal reports whether a FatalError is in err's chain.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsRetryable is the default retry predicate. Unclassified errors are
// retried; only fatal ones are not.
func IsRetryable(err error) bool {
	return err != nil && !IsFatal(err)
}

// Messages of network failures that reach us only as text, typically from
// SDKs that flatten the underlying error.
var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"no such host",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err is a TransientError or looks like a
// network failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range []error{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED, syscall.EPIPE} {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// statusOverloaded is the completion service's "overloaded" reply.
const statusOverloaded = 529

// IsTransientHTTPStatus reports whether a reply with this status is worth
// retrying.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooEarly,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		statusOverloaded:
		return true
	}
	return false
}

// ClassifyHTTPStatus marks err transient or fatal from the reply status.
// Other 4xx replies are fatal; 1xx-3xx and unknown 5xx leave err as is.
func ClassifyHTTPStatus(err error, code int) error {
	if IsTransientHTTPStatus(code) {
		return NewTransientError(err, code)
	}
	if code >= 400 && code < 500 {
		return NewFatalError(err, code)
	}
	return err
}

// ClassifyResponse is ClassifyHTTPStatus for a received reply, also
// recording a Retry-After header on transient errors.
func ClassifyResponse(err error, resp *http.Response) error {
	out := ClassifyHTTPStatus(err, resp.StatusCode)
	if te, ok := out.(*TransientError); ok {
		te.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return out
}

// parseRetryAfter accepts delay-seconds or an HTTP date. Anything else,
// or a date in the past, yields 0.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// RetryAfter returns the wait requested by the server on a transient error
// in err's chain, or 0.
func RetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// StatusCode returns the HTTP status recorded on a classified error in
// err's chain, or 0.
func StatusCode(err error) int {
	var te *TransientError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

// Kind names the class of err for log fields: "fatal", "transient",
// "unknown", or "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsFatal(err):
		return "fatal"
	case IsTransient(err):
		return "transient"
	}
	return "unknown"
}
