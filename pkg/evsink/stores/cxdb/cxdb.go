// Package cxdb provides a store that appends events to cxdb contexts, one
// context per collection, deduplicated by idempotency key.
package cxdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/event-sink/pkg/evsink"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// StoreOption configures the cxdb store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	labels    []string
	clientTag string
}

// WithLabels sets the labels attached to every collection context.
// The collection name is always added.
func WithLabels(labels []string) StoreOption {
	return func(c *storeConfig) {
		c.labels = labels
	}
}

// WithClientTag sets the client tag of the collection contexts.
func WithClientTag(tag string) StoreOption {
	return func(c *storeConfig) {
		if tag != "" {
			c.clientTag = tag
		}
	}
}

// Store appends each document as a turn in its collection's context.
// The document id is the idempotency key, so repeated upserts of the same
// id are stored once.
type Store struct {
	client    CXDBClient
	labels    []string
	clientTag string

	mu       sync.Mutex
	contexts map[string]uint64
	// described records collections whose context already has a turn
	// carrying the context metadata.
	described map[string]bool
}

var _ evsink.Store = (*Store)(nil)

// NewStore creates a store that writes through the client.
func NewStore(client CXDBClient, opts ...StoreOption) *Store {
	cfg := &storeConfig{
		labels:    []string{"events"},
		clientTag: "evsink",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Store{
		client:    client,
		labels:    cfg.labels,
		clientTag: cfg.clientTag,
		contexts:  make(map[string]uint64),
		described: make(map[string]bool),
	}
}

// Dial connects to cxdb (binary protocol, e.g. "localhost:9009") and
// returns a store using the connection.
func Dial(addr string, opts ...StoreOption) (*Store, error) {
	cfg := &storeConfig{clientTag: "evsink"}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := cxdbclient.Dial(addr, cxdbclient.WithClientTag(cfg.clientTag))
	if err != nil {
		return nil, fmt.Errorf("dial cxdb: %w", err)
	}
	return NewStore(client, opts...), nil
}

// Upsert appends the document to the collection's context.
func (s *Store) Upsert(ctx context.Context, collection, id string, doc evsink.Record) (evsink.Ack, error) {
	contextID, describe, err := s.contextFor(ctx, collection)
	if err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "create_context", Unreachable: isConnectionError(err), Err: err}
	}

	content, err := json.Marshal(doc)
	if err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "append_turn", Err: fmt.Errorf("encode document: %w", err)}
	}

	item := s.buildConversationItem(collection, id, string(content), describe)
	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "append_turn", Err: fmt.Errorf("encode payload: %w", err)}
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: id,
	}
	if _, err := s.client.AppendTurn(ctx, req); err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "append_turn", Unreachable: isConnectionError(err), Err: err}
	}

	if describe {
		s.mu.Lock()
		s.described[collection] = true
		s.mu.Unlock()
	}
	return evsink.AckCreated, nil
}

// contextFor returns the context to append to: the one carried by ctx, or
// the collection's own context, created on first use. The flag reports
// whether the turn must carry the context metadata, which holds until an
// append to the collection's context succeeds.
func (s *Store) contextFor(ctx context.Context, collection string) (uint64, bool, error) {
	if id, ok := ContextIDFromContext(ctx); ok {
		return id, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.contexts[collection]; ok {
		return id, !s.described[collection], nil
	}
	head, err := s.client.CreateContext(ctx, 0)
	if err != nil {
		return 0, false, fmt.Errorf("create context for %q: %w", collection, err)
	}
	s.contexts[collection] = head.ContextID
	return head.ContextID, true, nil
}

// buildConversationItem wraps a document as a system item of kind "event".
func (s *Store) buildConversationItem(collection, id, content string, describe bool) *cxdtypes.ConversationItem {
	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: time.Now().UnixMilli(),
		ID:        id,
		System: &cxdtypes.SystemMessage{
			Kind:    "event",
			Title:   collection,
			Content: content,
		},
	}

	// cxdb expects context metadata on the first turn of a context.
	if describe {
		labels := append(append([]string(nil), s.labels...), collection)
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    labels,
			ClientTag: s.clientTag,
		}
	}

	return item
}

// Close closes the underlying client if it is closable.
func (s *Store) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
