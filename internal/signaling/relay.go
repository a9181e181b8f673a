// Package signaling relays opaque call-setup payloads between paired
// participants through per-recipient bounded mailboxes. There is no pull
// endpoint: pushing a signal also drains and returns whatever was queued for
// the pusher, so two peers converge by alternating pushes.
package signaling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kindredspace/kindred/internal/domain"
)

// DefaultMailboxCapacity bounds pending envelopes per recipient.
const DefaultMailboxCapacity = 50

type Relay struct {
	capacity int
	log      *slog.Logger

	mu        sync.Mutex
	mailboxes map[string][]domain.Envelope
}

func NewRelay(capacity int, log *slog.Logger) *Relay {
	if capacity <= 0 {
		capacity = DefaultMailboxCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	return &Relay{
		capacity:  capacity,
		log:       log,
		mailboxes: make(map[string][]domain.Envelope),
	}
}

// Push stores an envelope for `to` and, in the same call, drains and returns
// every envelope waiting for `from`. On overflow the oldest entries by
// arrival are evicted first.
func (r *Relay) Push(from, to, kind, payload string) []domain.Envelope {
	envelope := domain.Envelope{
		FromUserID: from,
		Kind:       kind,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	mailbox := append(r.mailboxes[to], envelope)
	if overflow := len(mailbox) - r.capacity; overflow > 0 {
		mailbox = mailbox[overflow:]
	}
	r.mailboxes[to] = mailbox

	pending := r.mailboxes[from]
	delete(r.mailboxes, from)

	return pending
}

// Sweep deletes envelopes older than maxAge and removes mailboxes that end up
// empty, so an abandoned recipient does not leak a map entry.
func (r *Relay) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for recipient, mailbox := range r.mailboxes {
		kept := mailbox[:0]
		for _, envelope := range mailbox {
			if envelope.ReceivedAt.After(cutoff) {
				kept = append(kept, envelope)
			}
		}
		removed += len(mailbox) - len(kept)
		if len(kept) == 0 {
			delete(r.mailboxes, recipient)
			continue
		}
		r.mailboxes[recipient] = kept
	}

	if removed > 0 {
		r.log.Debug("stale signals swept", slog.Int("removed", removed))
	}
	return removed
}

// Run sweeps on a fixed interval until the stop channel closes.
func (r *Relay) Run(interval, maxAge time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(maxAge)
		case <-stop:
			return
		}
	}
}
