// policy.go decides what to do after a classified write failure.

package evsink

import "fmt"

// Decision is the retry policy's verdict on a failed attempt.
type Decision int

const (
	// DecisionRetry runs another attempt for the same event.
	DecisionRetry Decision = iota

	// DecisionAbort abandons the current event; the sink stays enabled.
	DecisionAbort

	// DecisionDisable abandons the current event and disables the sink.
	DecisionDisable
)

func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionAbort:
		return "abort"
	case DecisionDisable:
		return "disable"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// RetryPolicy bounds the attempts per event and maps failures to decisions.
type RetryPolicy struct {
	// Attempts is the total number of write attempts per event, at least 1.
	Attempts int
}

// NewRetryPolicy returns a policy allowing maxRetries retries after the
// first attempt. Negative values mean no retries.
func NewRetryPolicy(maxRetries int) RetryPolicy {
	attempts := maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	return RetryPolicy{Attempts: attempts}
}

// Decide returns the decision for a failure of the given kind on the
// zero-based attempt.
//
// Transient failures are retried until the last attempt; exhausting the
// retries disables the sink like the credential, permission and endpoint
// failures do. Unknown failures abandon only the current event.
func (p RetryPolicy) Decide(kind ErrorKind, attempt int) Decision {
	switch kind {
	case KindTransient:
		if attempt < p.Attempts-1 {
			return DecisionRetry
		}
		return DecisionDisable
	case KindUnauthorized, KindForbidden, KindNotFound:
		return DecisionDisable
	case KindUnknown:
		return DecisionAbort
	default:
		panic(fmt.Sprintf("evsink: unhandled error kind %v", kind))
	}
}
