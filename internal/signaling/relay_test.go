package signaling

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindredspace/kindred/internal/domain"
)

func TestPushDeliversOnReturnPush(t *testing.T) {
	relay := NewRelay(0, nil)

	pending := relay.Push("alice", "bob", domain.SignalOffer, "sdp-offer")
	assert.Empty(t, pending)

	pending = relay.Push("bob", "alice", domain.SignalAnswer, "sdp-answer")
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].FromUserID)
	assert.Equal(t, domain.SignalOffer, pending[0].Kind)
	assert.Equal(t, "sdp-offer", pending[0].Payload)

	// The drain is destructive: a second push finds nothing.
	pending = relay.Push("bob", "alice", domain.SignalAnswer, "sdp-answer-2")
	assert.Empty(t, pending)
}

func TestPushEvictsOldestOnOverflow(t *testing.T) {
	relay := NewRelay(50, nil)

	for i := 0; i < 60; i++ {
		relay.Push("alice", "bob", domain.SignalCandidate, fmt.Sprintf("candidate-%d", i))
	}

	pending := relay.Push("bob", "alice", domain.SignalAnswer, "done")
	require.Len(t, pending, 50)
	assert.Equal(t, "candidate-10", pending[0].Payload)
	assert.Equal(t, "candidate-59", pending[49].Payload)
}

func TestSweepRemovesOnlyStaleEnvelopes(t *testing.T) {
	relay := NewRelay(0, nil)

	relay.Push("alice", "bob", domain.SignalOffer, "old")
	relay.Push("alice", "bob", domain.SignalOffer, "fresh")

	relay.mu.Lock()
	relay.mailboxes["bob"][0].ReceivedAt = time.Now().UTC().Add(-20 * time.Minute)
	relay.mu.Unlock()

	removed := relay.Sweep(15 * time.Minute)
	assert.Equal(t, 1, removed)

	pending := relay.Push("bob", "alice", domain.SignalAnswer, "x")
	require.Len(t, pending, 1)
	assert.Equal(t, "fresh", pending[0].Payload)
}

func TestSweepDropsEmptyMailboxes(t *testing.T) {
	relay := NewRelay(0, nil)

	relay.Push("alice", "bob", domain.SignalOffer, "old")

	relay.mu.Lock()
	relay.mailboxes["bob"][0].ReceivedAt = time.Now().UTC().Add(-time.Hour)
	relay.mu.Unlock()

	assert.Equal(t, 1, relay.Sweep(15*time.Minute))

	relay.mu.Lock()
	_, exists := relay.mailboxes["bob"]
	relay.mu.Unlock()
	assert.False(t, exists)

	// The recipient starts clean afterwards.
	relay.Push("alice", "bob", domain.SignalOffer, "new")
	pending := relay.Push("bob", "alice", domain.SignalAnswer, "x")
	require.Len(t, pending, 1)
	assert.Equal(t, "new", pending[0].Payload)
}
