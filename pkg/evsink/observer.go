// observer.go defines the metrics side channel of the sink.

package evsink

// Outcome is the final result of handling one event.
type Outcome int

const (
	// OutcomeStored means the event was upserted.
	OutcomeStored Outcome = iota

	// OutcomeSkippedDisabled means the sink was already disabled.
	OutcomeSkippedDisabled

	// OutcomeSkippedStoreOff means storage is turned off by configuration.
	OutcomeSkippedStoreOff

	// OutcomeAbandoned means the event was dropped after an unrecognized failure.
	OutcomeAbandoned

	// OutcomeDisabled means the event was dropped and the sink disabled itself.
	OutcomeDisabled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeSkippedDisabled:
		return "skipped_disabled"
	case OutcomeSkippedStoreOff:
		return "skipped_store_off"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Observer receives counts of what the sink does.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	// ObserveAttempt is called after every write attempt. err is nil on success.
	ObserveAttempt(collection string, err error)

	// ObserveOutcome is called once per handled event.
	ObserveOutcome(collection string, outcome Outcome)

	// ObserveDisabled is called once, when the sink disables itself.
	ObserveDisabled(kind ErrorKind)
}

type noopObserver struct{}

func (noopObserver) ObserveAttempt(string, error)   {}
func (noopObserver) ObserveOutcome(string, Outcome) {}
func (noopObserver) ObserveDisabled(ErrorKind)      {}
