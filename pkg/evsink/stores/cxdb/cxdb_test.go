package cxdb

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/event-sink/pkg/evsink"
)

// mockCXDBClient is a test double for the cxdb client.
type mockCXDBClient struct {
	mu             sync.Mutex
	createContexts []uint64
	appendRequests []*cxdbclient.AppendRequest
	nextContextID  uint64
	createErr      error
	appendErr      error
	closed         bool
}

func (m *mockCXDBClient) CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createContexts = append(m.createContexts, baseTurnID)
	m.nextContextID++
	return &cxdbclient.ContextHead{ContextID: m.nextContextID}, nil
}

func (m *mockCXDBClient) AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	m.appendRequests = append(m.appendRequests, req)
	return &cxdbclient.AppendResult{ContextID: req.ContextID, TurnID: uint64(len(m.appendRequests))}, nil
}

func (m *mockCXDBClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockCXDBClient) getAppendRequests() []*cxdbclient.AppendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*cxdbclient.AppendRequest, len(m.appendRequests))
	copy(result, m.appendRequests)
	return result
}

func (m *mockCXDBClient) getCreateContextCalls() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]uint64, len(m.createContexts))
	copy(result, m.createContexts)
	return result
}

func decodeConversationItem(t *testing.T, payload []byte) cxdtypes.ConversationItem {
	t.Helper()
	var item cxdtypes.ConversationItem
	require.NoError(t, cxdbclient.DecodeMsgpackInto(payload, &item))
	return item
}

func TestStore_ImplementsStoreInterface(t *testing.T) {
	var _ evsink.Store = NewStore(&mockCXDBClient{})
}

func TestStore_Upsert_FirstWriteCreatesContext(t *testing.T) {
	client := &mockCXDBClient{}
	store := NewStore(client, WithLabels([]string{"audit"}), WithClientTag("test-tag"))

	ack, err := store.Upsert(context.Background(), "login", "sink-1abc", evsink.Record{"user": "alice"})
	require.NoError(t, err)
	assert.Equal(t, evsink.AckCreated, ack)

	assert.Equal(t, []uint64{0}, client.getCreateContextCalls())

	reqs := client.getAppendRequests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, uint64(1), req.ContextID)
	assert.Equal(t, cxdtypes.TypeIDConversationItem, req.TypeID)
	assert.Equal(t, cxdtypes.TypeVersionConversationItem, req.TypeVersion)
	assert.Equal(t, "sink-1abc", req.IdempotencyKey)

	item := decodeConversationItem(t, req.Payload)
	require.NotNil(t, item.ContextMetadata)
	assert.Equal(t, []string{"audit", "login"}, item.ContextMetadata.Labels)
	assert.Equal(t, "test-tag", item.ContextMetadata.ClientTag)
}

func TestStore_Upsert_ReusesContextPerCollection(t *testing.T) {
	client := &mockCXDBClient{}
	store := NewStore(client)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "login", "a", evsink.Record{})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "login", "b", evsink.Record{})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "logout", "c", evsink.Record{})
	require.NoError(t, err)

	assert.Len(t, client.getCreateContextCalls(), 2)

	reqs := client.getAppendRequests()
	require.Len(t, reqs, 3)
	assert.Equal(t, reqs[0].ContextID, reqs[1].ContextID)
	assert.NotEqual(t, reqs[0].ContextID, reqs[2].ContextID)

	// Only the first turn of a context carries metadata.
	second := decodeConversationItem(t, reqs[1].Payload)
	assert.Nil(t, second.ContextMetadata)
}

func (m *mockCXDBClient) setAppendErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}

func TestStore_Upsert_MetadataRetriedAfterFailedFirstAppend(t *testing.T) {
	client := &mockCXDBClient{}
	store := NewStore(client, WithClientTag("test-tag"))
	ctx := context.Background()

	client.setAppendErr(&net.OpError{Op: "write", Net: "tcp", Err: errors.New("connection reset")})
	_, err := store.Upsert(ctx, "login", "a", evsink.Record{})
	require.Error(t, err)

	client.setAppendErr(nil)
	_, err = store.Upsert(ctx, "login", "a", evsink.Record{})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "login", "b", evsink.Record{})
	require.NoError(t, err)

	assert.Len(t, client.getCreateContextCalls(), 1)
	reqs := client.getAppendRequests()
	require.Len(t, reqs, 2)

	first := decodeConversationItem(t, reqs[0].Payload)
	require.NotNil(t, first.ContextMetadata, "the first successful turn must carry the metadata")
	assert.Equal(t, "test-tag", first.ContextMetadata.ClientTag)
	assert.Equal(t, []string{"events", "login"}, first.ContextMetadata.Labels)

	second := decodeConversationItem(t, reqs[1].Payload)
	assert.Nil(t, second.ContextMetadata)
}

func TestStore_Upsert_PayloadCarriesDocument(t *testing.T) {
	client := &mockCXDBClient{}
	store := NewStore(client)

	doc := evsink.Record{
		"user": "alice",
		evsink.MetadataField: map[string]any{
			"sink_id": "sink-1",
			"type":    "Login",
		},
	}
	_, err := store.Upsert(context.Background(), "login", "sink-1abc", doc)
	require.NoError(t, err)

	reqs := client.getAppendRequests()
	require.Len(t, reqs, 1)
	item := decodeConversationItem(t, reqs[0].Payload)

	assert.Equal(t, cxdtypes.ItemTypeSystem, item.ItemType)
	assert.Equal(t, cxdtypes.ItemStatusComplete, item.Status)
	assert.Equal(t, "sink-1abc", item.ID)
	require.NotNil(t, item.System)
	assert.EqualValues(t, "event", item.System.Kind)
	assert.Equal(t, "login", item.System.Title)

	var content map[string]any
	require.NoError(t, json.Unmarshal([]byte(item.System.Content), &content))
	assert.Equal(t, "alice", content["user"])
	meta, ok := content[evsink.MetadataField].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sink-1", meta["sink_id"])
}

func TestStore_Upsert_CreateContextConnectionError(t *testing.T) {
	client := &mockCXDBClient{
		createErr: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
	}
	store := NewStore(client)

	_, err := store.Upsert(context.Background(), "login", "a", evsink.Record{})
	require.Error(t, err)

	var storeErr *evsink.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "create_context", storeErr.Op)
	assert.True(t, storeErr.Unreachable)
	assert.Equal(t, evsink.KindTransient, evsink.Classify(err))
	assert.Empty(t, client.getAppendRequests())
}

func TestStore_Upsert_AppendErrorIsUnknown(t *testing.T) {
	client := &mockCXDBClient{appendErr: errors.New("type registry rejected payload")}
	store := NewStore(client)

	_, err := store.Upsert(context.Background(), "login", "a", evsink.Record{})
	require.Error(t, err)

	var storeErr *evsink.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "append_turn", storeErr.Op)
	assert.False(t, storeErr.Unreachable)
	assert.Equal(t, evsink.KindUnknown, evsink.Classify(err))
}

func TestStore_Upsert_CanceledIsNotUnreachable(t *testing.T) {
	client := &mockCXDBClient{appendErr: context.Canceled}
	store := NewStore(client)

	_, err := store.Upsert(context.Background(), "login", "a", evsink.Record{})
	require.Error(t, err)
	assert.Equal(t, evsink.KindUnknown, evsink.Classify(err))
}

func TestStore_Close_ClosesClient(t *testing.T) {
	client := &mockCXDBClient{}
	store := NewStore(client)

	require.NoError(t, store.Close())
	assert.True(t, client.closed)
}

func TestStore_ConcurrentUpserts_OneContextPerCollection(t *testing.T) {
	client := &mockCXDBClient{}
	store := NewStore(client)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Upsert(context.Background(), "login", "a", evsink.Record{})
		}()
	}
	wg.Wait()

	assert.Len(t, client.getCreateContextCalls(), 1)
	assert.Len(t, client.getAppendRequests(), 20)
}
