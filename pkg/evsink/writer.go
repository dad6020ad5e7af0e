// writer.go performs single upsert attempts against the remote store.

package evsink

import (
	"context"
	"strings"
	"time"
)

// WriteTimeout bounds every upsert attempt.
const WriteTimeout = 15 * time.Second

// Ack reports how the store applied a successful upsert.
type Ack int

const (
	// AckCreated means a new document was created.
	AckCreated Ack = iota

	// AckExists means a document with the same id already existed and was replaced.
	AckExists
)

func (a Ack) String() string {
	if a == AckExists {
		return "exists"
	}
	return "created"
}

// Store is the remote document store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Upsert creates or replaces the document with the given id in the
	// collection. Failures should be returned as *StoreError so they can
	// be classified.
	Upsert(ctx context.Context, collection, id string, doc Record) (Ack, error)

	// Close releases the store's connections.
	Close() error
}

// MetadataField is the document field carrying sink metadata.
const MetadataField = "__event_sink"

// Writer computes document ids and issues one upsert per call.
type Writer struct {
	store      Store
	identity   Identity
	collection string
	host       string
}

// NewWriter returns a Writer for the store. fallbackCollection is used for
// events with an empty type tag.
func NewWriter(store Store, identity Identity, fallbackCollection string) *Writer {
	return &Writer{
		store:      store,
		identity:   identity,
		collection: fallbackCollection,
		host:       hostName(),
	}
}

// CollectionFor returns the collection the event is stored in.
func (w *Writer) CollectionFor(event Event) string {
	if tag := strings.ToLower(strings.TrimSpace(event.TypeTag())); tag != "" {
		return tag
	}
	return strings.ToLower(w.collection)
}

// Write performs a single upsert attempt for the event.
func (w *Writer) Write(ctx context.Context, event Event) (ack Ack, err error) {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = recoveredError("upsert", r)
		}
	}()

	doc := copyRecord(event.ToRecord())
	doc[MetadataField] = map[string]any{
		"sink_id": w.identity.String(),
		"host":    w.host,
		"type":    event.TypeTag(),
	}

	return w.store.Upsert(ctx, w.CollectionFor(event), DocumentID(w.identity, event), doc)
}
