package voicechat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredspace/kindred/internal/vectorindex"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeIndex struct {
	points     map[string]vectorindex.Point
	candidates []vectorindex.Record
	lastFilter *vectorindex.Filter
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[string]vectorindex.Point)}
}

func (f *fakeIndex) EnsureCollection(ctx context.Context, name string, size int) error { return nil }

func (f *fakeIndex) CreateFieldIndex(ctx context.Context, collection, field, schema string) error {
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, collection string, points []vectorindex.Point) error {
	for _, point := range points {
		f.points[point.ID] = point
	}
	return nil
}

func (f *fakeIndex) Fetch(ctx context.Context, collection string, ids []string) ([]vectorindex.Record, error) {
	var records []vectorindex.Record
	for _, id := range ids {
		if point, ok := f.points[id]; ok {
			records = append(records, vectorindex.Record{ID: point.ID, Payload: point.Payload})
		}
	}
	return records, nil
}

func (f *fakeIndex) Query(ctx context.Context, collection string, vector []float32, filter *vectorindex.Filter, limit int) ([]vectorindex.Record, error) {
	f.lastFilter = filter
	return f.candidates, nil
}

func (f *fakeIndex) Scroll(ctx context.Context, collection string, filter *vectorindex.Filter, limit int) ([]vectorindex.Record, error) {
	return nil, nil
}

func (f *fakeIndex) Patch(ctx context.Context, collection, id string, payload map[string]any) error {
	return nil
}

func TestRegisterStoresTags(t *testing.T) {
	index := newFakeIndex()
	service := NewService(index, fakeEmbedder{}, nil)

	userID, err := service.Register(context.Background(), "guitars, jazz")
	require.NoError(t, err)
	require.NotEmpty(t, userID)

	point, ok := index.points[userID]
	require.True(t, ok)
	assert.Equal(t, "guitars, jazz", point.Payload["tags"])
	assert.Equal(t, userID, point.Payload["user_id"])
}

func TestRegisterRejectsEmptyTags(t *testing.T) {
	service := NewService(newFakeIndex(), fakeEmbedder{}, nil)

	_, err := service.Register(context.Background(), "")
	assert.Error(t, err)
}

func TestFindMatchReturnsBestCandidate(t *testing.T) {
	index := newFakeIndex()
	service := NewService(index, fakeEmbedder{}, nil)

	userID, err := service.Register(context.Background(), "guitars, jazz")
	require.NoError(t, err)

	index.candidates = []vectorindex.Record{
		{ID: "other", Score: 0.91, Payload: map[string]any{"user_id": "other", "tags": "jazz, piano"}},
		{ID: "far", Score: 0.42, Payload: map[string]any{"user_id": "far", "tags": "football"}},
	}

	match, err := service.FindMatch(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "other", match.UserID)
	assert.Equal(t, "jazz, piano", match.Tags)
	assert.InDelta(t, 0.91, match.Score, 1e-9)

	// The caller is excluded from its own candidate set.
	require.NotNil(t, index.lastFilter)
	require.Len(t, index.lastFilter.MustNot, 1)
	assert.Equal(t, "user_id", index.lastFilter.MustNot[0].Key)
}

func TestFindMatchNoCandidates(t *testing.T) {
	index := newFakeIndex()
	service := NewService(index, fakeEmbedder{}, nil)

	userID, err := service.Register(context.Background(), "guitars")
	require.NoError(t, err)

	match, err := service.FindMatch(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindMatchUnknownUser(t *testing.T) {
	service := NewService(newFakeIndex(), fakeEmbedder{}, nil)

	_, err := service.FindMatch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
