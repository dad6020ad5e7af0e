// identity.go derives the sink identity and the deterministic document ids.

package evsink

import "github.com/google/uuid"

// Identity namespaces the document ids written by one sink instance.
// Two sinks storing the same event produce different ids; one sink
// storing the same event twice produces the same id.
type Identity string

// NewIdentity returns a fresh random identity.
func NewIdentity() Identity {
	return Identity(uuid.NewString())
}

// String returns the identity as a plain string.
func (id Identity) String() string {
	return string(id)
}

// DocumentID returns the upsert key for an event written by this identity.
func DocumentID(id Identity, event Event) string {
	return string(id) + event.ContentHash()
}
