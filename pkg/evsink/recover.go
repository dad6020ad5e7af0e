// recover.go turns panics raised while storing an event into errors.

package evsink

import (
	"fmt"
	"runtime/debug"
)

// PanicError is a panic recovered while handling an event.
// It classifies as KindUnknown, so it abandons only that event.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	return "panic: " + formatRecovered(e.Value)
}

func recoveredError(op string, recovered any) error {
	return &StoreError{
		Op: op,
		Err: &PanicError{
			Value:      recovered,
			StackTrace: string(debug.Stack()),
		},
	}
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
