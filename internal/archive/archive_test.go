package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/internal/embedding"
	"github.com/kindredspace/kindred/internal/vectorindex"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vector := make([]float32, embedding.Dimensions)
	vector[0] = 1
	return vector, nil
}

// fakeIndex keeps upserted points per collection and answers Fetch and Scroll
// from them. Query and filters are recorded, not evaluated.
type fakeIndex struct {
	points   map[string]map[string]vectorindex.Point
	patches  []map[string]any
	upserted []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[string]map[string]vectorindex.Point)}
}

func (f *fakeIndex) put(collection string, point vectorindex.Point) {
	if f.points[collection] == nil {
		f.points[collection] = make(map[string]vectorindex.Point)
	}
	f.points[collection][point.ID] = point
}

func (f *fakeIndex) EnsureCollection(ctx context.Context, name string, size int) error {
	return nil
}

func (f *fakeIndex) CreateFieldIndex(ctx context.Context, collection, field, schema string) error {
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, collection string, points []vectorindex.Point) error {
	for _, point := range points {
		f.put(collection, point)
		f.upserted = append(f.upserted, collection+"/"+point.ID)
	}
	return nil
}

func (f *fakeIndex) Fetch(ctx context.Context, collection string, ids []string) ([]vectorindex.Record, error) {
	var records []vectorindex.Record
	for _, id := range ids {
		if point, ok := f.points[collection][id]; ok {
			records = append(records, vectorindex.Record{ID: point.ID, Payload: point.Payload})
		}
	}
	return records, nil
}

func (f *fakeIndex) Query(ctx context.Context, collection string, vector []float32, filter *vectorindex.Filter, limit int) ([]vectorindex.Record, error) {
	return f.all(collection), nil
}

func (f *fakeIndex) Scroll(ctx context.Context, collection string, filter *vectorindex.Filter, limit int) ([]vectorindex.Record, error) {
	return f.all(collection), nil
}

func (f *fakeIndex) Patch(ctx context.Context, collection, id string, payload map[string]any) error {
	point, ok := f.points[collection][id]
	if !ok {
		return errors.New("point not found")
	}
	for key, value := range payload {
		point.Payload[key] = value
	}
	f.put(collection, point)
	f.patches = append(f.patches, payload)
	return nil
}

func (f *fakeIndex) all(collection string) []vectorindex.Record {
	var records []vectorindex.Record
	for _, point := range f.points[collection] {
		records = append(records, vectorindex.Record{ID: point.ID, Payload: point.Payload})
	}
	return records
}

func TestSaveEmbedsTextMessagesOnly(t *testing.T) {
	index := newFakeIndex()
	embedder := &fakeEmbedder{}
	store := NewStore(index, embedder, nil)

	text := domain.NewMessage("s1", "alice", "hello there", domain.MessageText)
	_, err := store.Save(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.NotNil(t, text.Embedding)

	system := domain.NewMessage("s1", "system", "User alice has joined the chat", domain.MessageJoined)
	_, err = store.Save(context.Background(), system)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)

	stored := index.points[MessagesCollection][system.ID]
	assert.Equal(t, string(domain.MessageJoined), stored.Payload["message_type"])
}

func TestSaveReusesExistingEmbedding(t *testing.T) {
	index := newFakeIndex()
	embedder := &fakeEmbedder{}
	store := NewStore(index, embedder, nil)

	message := domain.NewMessage("s1", "alice", "hello", domain.MessageText)
	message.Embedding = []float32{1, 2, 3}

	_, err := store.Save(context.Background(), message)
	require.NoError(t, err)
	assert.Equal(t, 0, embedder.calls)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	index := newFakeIndex()
	store := NewStore(index, &fakeEmbedder{}, nil)

	message := domain.NewMessage("s1", "alice", "hello", domain.MessageText)
	_, err := store.Save(context.Background(), message)
	require.NoError(t, err)

	require.NoError(t, store.MarkRead(context.Background(), "bob", []string{message.ID}))
	require.NoError(t, store.MarkRead(context.Background(), "bob", []string{message.ID}))

	// Only the first call writes; the repeat is a no-op.
	require.Len(t, index.patches, 1)
	assert.ElementsMatch(t, []string{"alice", "bob"}, index.patches[0]["read_by"])
}

func TestMarkReadUnknownMessage(t *testing.T) {
	store := NewStore(newFakeIndex(), &fakeEmbedder{}, nil)

	err := store.MarkRead(context.Background(), "bob", []string{"missing"})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestListForSessionOrdersByTimestamp(t *testing.T) {
	index := newFakeIndex()
	store := NewStore(index, &fakeEmbedder{}, nil)

	index.put(MessagesCollection, vectorindex.Point{ID: "m2", Payload: map[string]any{
		"session_id": "s1", "sender_id": "bob", "message": "second",
		"message_type": "text", "timestamp": float64(200),
	}})
	index.put(MessagesCollection, vectorindex.Point{ID: "m1", Payload: map[string]any{
		"session_id": "s1", "sender_id": "alice", "message": "first",
		"message_type": "text", "timestamp": float64(100),
	}})

	messages, err := store.ListForSession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Body)
	assert.Equal(t, "second", messages[1].Body)
}

func TestSearchWithoutSessionsReturnsNothing(t *testing.T) {
	index := newFakeIndex()
	embedder := &fakeEmbedder{}
	store := NewStore(index, embedder, nil)

	messages, err := store.Search(context.Background(), "alice", "jazz", 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSessionsForListsSavedSessions(t *testing.T) {
	index := newFakeIndex()
	store := NewStore(index, &fakeEmbedder{}, nil)

	session := domain.NewSession("alice", "bob")
	require.NoError(t, store.SaveSession(context.Background(), session))

	ids, err := store.SessionsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{session.ID}, ids)
}
