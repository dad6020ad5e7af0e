// Package memory provides an in-process store for tests and local runs.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/strongdm/event-sink/pkg/evsink"
)

// ErrClosed is returned by Upsert after Close.
var ErrClosed = errors.New("memory store closed")

// Store keeps documents in a map keyed by collection and id. Upserting an
// existing id replaces the document, like the Index API does.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]evsink.Record
	upserts     int
	closed      bool
}

var _ evsink.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]evsink.Record)}
}

// Upsert creates or replaces the document under (collection, id).
func (s *Store) Upsert(ctx context.Context, collection, id string, doc evsink.Record) (evsink.Ack, error) {
	if err := ctx.Err(); err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "upsert", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return evsink.AckCreated, &evsink.StoreError{Op: "upsert", Err: ErrClosed}
	}
	s.upserts++

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]evsink.Record)
		s.collections[collection] = docs
	}
	_, exists := docs[id]
	docs[id] = doc
	if exists {
		return evsink.AckExists, nil
	}
	return evsink.AckCreated, nil
}

// Get returns the document stored under (collection, id).
func (s *Store) Get(collection, id string) (evsink.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	return doc, ok
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

// Upserts returns the number of Upsert calls that reached the map.
func (s *Store) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
