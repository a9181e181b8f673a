package matching

import (
	"sync"

	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/internal/similarity"
)

// Queue holds profiles waiting to be paired, in insertion order. All scanning
// and mutation happens under one lock so two concurrent pairing attempts can
// never claim the same entry.
type Queue struct {
	mu      sync.Mutex
	waiting []*domain.Profile
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(profile *domain.Profile) {
	q.mu.Lock()
	q.waiting = append(q.waiting, profile)
	q.mu.Unlock()
}

// TakeFirstAbove removes and returns the first waiting profile, in insertion
// order, whose similarity against the given embedding exceeds the threshold.
// First-fit: a closer-but-later candidate is not considered once an earlier
// one clears the threshold. Returns nil when nothing matches.
func (q *Queue) TakeFirstAbove(embedding []float32, threshold float64) *domain.Profile {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, candidate := range q.waiting {
		if similarity.Score(embedding, candidate.Embedding) > threshold {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return candidate
		}
	}
	return nil
}

// Remove drops the profile with the given id, if still waiting.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, candidate := range q.waiting {
		if candidate.ID == id {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}
