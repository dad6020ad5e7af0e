// event.go defines the event contract the sink consumes from producers.

package evsink

// Record is the serializable form of an event, stored as the document body.
type Record map[string]any

// Event is a single record handed to the sink by a producer.
// Events are immutable once received.
type Event interface {
	// TypeTag names the event category. Lowercased, it selects the
	// collection the event is stored in.
	TypeTag() string

	// ContentHash is a stable, collision-resistant hash of the event content,
	// computed by the producer.
	ContentHash() string

	// ToRecord returns the document representation of the event.
	ToRecord() Record
}

// BasicEvent is a ready-made Event for producers that do not define their own.
type BasicEvent struct {
	// Type is the event type tag (e.g. "IP_ADDRESS").
	Type string

	// Hash is the content hash. NewEvent fills it from Type and Data.
	Hash string

	// Data is the event payload.
	Data Record
}

var _ Event = BasicEvent{}

// NewEvent builds a BasicEvent and computes its content hash.
func NewEvent(typeTag string, data Record) BasicEvent {
	return BasicEvent{
		Type: typeTag,
		Hash: ContentHash(typeTag, data),
		Data: data,
	}
}

// TypeTag returns the event type.
func (e BasicEvent) TypeTag() string {
	return e.Type
}

// ContentHash returns the precomputed content hash.
func (e BasicEvent) ContentHash() string {
	return e.Hash
}

// ToRecord returns a shallow copy of the payload.
func (e BasicEvent) ToRecord() Record {
	return copyRecord(e.Data)
}

func copyRecord(in Record) Record {
	out := make(Record, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
