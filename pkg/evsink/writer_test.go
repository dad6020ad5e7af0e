package evsink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deadlineStore struct {
	deadline   time.Time
	collection string
}

func (s *deadlineStore) Upsert(ctx context.Context, collection, id string, doc Record) (Ack, error) {
	s.deadline, _ = ctx.Deadline()
	s.collection = collection
	return AckExists, nil
}

func (s *deadlineStore) Close() error { return nil }

func TestWriter_Write_AppliesTimeoutAndLowercases(t *testing.T) {
	store := &deadlineStore{}
	w := NewWriter(store, "sink-", DefaultCollection)

	ack, err := w.Write(context.Background(), NewEvent("Ip_Address", Record{"data": "1"}))
	require.NoError(t, err)
	assert.Equal(t, AckExists, ack)
	assert.Equal(t, "ip_address", store.collection)
	assert.WithinDuration(t, time.Now().Add(WriteTimeout), store.deadline, time.Second)
}

func TestWriter_Write_DoesNotMutateEvent(t *testing.T) {
	store := &deadlineStore{}
	w := NewWriter(store, "sink-", DefaultCollection)
	event := NewEvent("IP_ADDRESS", Record{"data": "1"})

	_, err := w.Write(context.Background(), event)
	require.NoError(t, err)
	_, ok := event.Data[MetadataField]
	assert.False(t, ok)
}

func TestWriter_CollectionFor(t *testing.T) {
	w := NewWriter(discardStore{}, "sink-", "Fallback")
	assert.Equal(t, "fallback", w.CollectionFor(NewEvent("  ", nil)))
	assert.Equal(t, "url_form", w.CollectionFor(NewEvent("URL_FORM", nil)))
}

func TestAck_String(t *testing.T) {
	assert.Equal(t, "created", AckCreated.String())
	assert.Equal(t, "exists", AckExists.String())
}
