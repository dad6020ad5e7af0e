package cxdb

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/event-sink/pkg/evsink"
)

func TestContextID_RoundTrip(t *testing.T) {
	ctx := WithContextID(context.Background(), 42)
	id, ok := ContextIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), id)
}

func TestContextID_ZeroIsSet(t *testing.T) {
	ctx := WithContextID(context.Background(), 0)
	id, ok := ContextIDFromContext(ctx)
	assert.True(t, ok)
	assert.Zero(t, id)
}

func TestContextID_NotSet(t *testing.T) {
	_, ok := ContextIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestStore_Upsert_LinkedContext(t *testing.T) {
	client := &mockCXDBClient{}
	store := NewStore(client)

	ctx := WithContextID(context.Background(), 12345)
	_, err := store.Upsert(ctx, "login", "a", evsink.Record{})
	require.NoError(t, err)

	assert.Empty(t, client.getCreateContextCalls(), "should not create a context when one is linked")
	reqs := client.getAppendRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, uint64(12345), reqs[0].ContextID)

	item := decodeConversationItem(t, reqs[0].Payload)
	assert.Nil(t, item.ContextMetadata)
}

func TestEventSink_LinkedContextSurvivesWriteTimeout(t *testing.T) {
	client := &mockCXDBClient{}
	logger, _ := logtest.NewNullLogger()
	sink := evsink.New(evsink.DefaultConfig(), evsink.WithStore(NewStore(client)), evsink.WithLogger(logger))

	ctx := WithContextID(context.Background(), 7)
	sink.Handle(ctx, evsink.NewEvent("Login", evsink.Record{"user": "alice"}))

	reqs := client.getAppendRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, uint64(7), reqs[0].ContextID)
}
