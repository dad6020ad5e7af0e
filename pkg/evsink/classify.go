// classify.go maps raw store failures to the categories the retry policy acts on.

package evsink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrorKind is the classification of a failed write attempt.
type ErrorKind int

const (
	// KindUnknown is an unrecognized failure, possibly specific to one event.
	KindUnknown ErrorKind = iota

	// KindTransient is a connection or timeout failure worth retrying.
	KindTransient

	// KindUnauthorized means the store rejected the credentials.
	KindUnauthorized

	// KindForbidden means the credentials are valid but lack permission.
	KindForbidden

	// KindNotFound means the endpoint or resource does not exist.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// StoreError is returned by Store implementations when an upsert fails.
type StoreError struct {
	// Op is the store operation that failed (e.g. "index").
	Op string

	// Status is the HTTP-style status code of the store response,
	// or 0 when no response was received.
	Status int

	// Reason is the store's own description of the failure.
	Reason string

	// Unreachable marks a connection failure: the request never got
	// a response from the store.
	Unreachable bool

	// Err is the underlying transport or encoding error, if any.
	Err error
}

func (e *StoreError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Classify maps a write failure to an ErrorKind.
//
// Rules are checked in priority order: authentication, connection,
// authorization, not found. Anything else is KindUnknown. A response that
// could be read as both an authentication and an authorization failure is
// an authentication failure.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var se *StoreError
	if !errors.As(err, &se) {
		se = &StoreError{Err: err}
	}

	switch {
	case isUnauthorized(se):
		return KindUnauthorized
	case isTransient(se):
		return KindTransient
	case se.Status == http.StatusForbidden:
		return KindForbidden
	case se.Status == http.StatusNotFound:
		return KindNotFound
	default:
		return KindUnknown
	}
}

// Phrases stores use when rejecting credentials, as opposed to permissions.
var authenticationPhrases = []string{
	"unable to authenticate",
	"missing authentication",
	"authentication failed",
	"invalid credentials",
}

func isUnauthorized(se *StoreError) bool {
	if se.Status == http.StatusUnauthorized {
		return true
	}
	reason := strings.ToLower(se.Reason)
	for _, phrase := range authenticationPhrases {
		if strings.Contains(reason, phrase) {
			return true
		}
	}
	return false
}

func isTransient(se *StoreError) bool {
	if se.Unreachable {
		return true
	}
	switch se.Status {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}

	err := se.Err
	if err == nil {
		return false
	}
	// Caller cancellation is not a store condition and must not be retried.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
