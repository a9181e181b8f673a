package matching

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredspace/kindred/internal/domain"
)

func waitingProfile(description string, embedding []float32) *domain.Profile {
	p := domain.NewProfile(description, nil, "")
	p.Embedding = embedding
	return p
}

func TestQueueTakeFirstAbove(t *testing.T) {
	q := NewQueue()
	q.Enqueue(waitingProfile("orthogonal", []float32{0, 1, 0}))
	q.Enqueue(waitingProfile("close", []float32{1, 0.1, 0}))

	taken := q.TakeFirstAbove([]float32{1, 0, 0}, 0.7)
	require.NotNil(t, taken)
	assert.Equal(t, "close", taken.Description)
	assert.Equal(t, 1, q.Len())

	// The taken entry must not be handed out twice.
	assert.Nil(t, q.TakeFirstAbove([]float32{1, 0, 0}, 0.7))
}

func TestQueueTakeFirstAboveIsFirstFit(t *testing.T) {
	q := NewQueue()
	q.Enqueue(waitingProfile("earlier", []float32{1, 0.3, 0}))
	q.Enqueue(waitingProfile("closer", []float32{1, 0, 0}))

	taken := q.TakeFirstAbove([]float32{1, 0, 0}, 0.7)
	require.NotNil(t, taken)
	assert.Equal(t, "earlier", taken.Description)
}

func TestQueueTakeFirstAboveThresholdIsExclusive(t *testing.T) {
	q := NewQueue()
	q.Enqueue(waitingProfile("identical", []float32{1, 0, 0}))

	assert.Nil(t, q.TakeFirstAbove([]float32{1, 0, 0}, 1.0))
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	p := waitingProfile("waiting", []float32{1, 0, 0})
	q.Enqueue(p)

	assert.True(t, q.Remove(p.ID))
	assert.False(t, q.Remove(p.ID))
	assert.Equal(t, 0, q.Len())
}

func TestQueueConcurrentTakeClaimsEntryOnce(t *testing.T) {
	q := NewQueue()
	q.Enqueue(waitingProfile("only", []float32{1, 0, 0}))

	const attempts = 32
	results := make(chan *domain.Profile, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.TakeFirstAbove([]float32{1, 0.1, 0}, 0.7)
		}()
	}
	wg.Wait()
	close(results)

	taken := 0
	for p := range results {
		if p != nil {
			taken++
		}
	}
	assert.Equal(t, 1, taken)
}
