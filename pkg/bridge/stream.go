package bridge

import (
	"sync"

	"github.com/stratadesk/strata/pkg/domain"
)

// subscriber buffers events for one consumer. Slow consumers drop events
// rather than stall the pipeline; the stream is advisory, state queries are
// authoritative.
const subscriberBuffer = 32

// StreamManager fans events out to active subscribers. A subscriber may
// filter to a single viewport or receive everything.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Event]domain.ViewportID // chan -> filter ("" = all)
}

// NewStreamManager creates an empty manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan domain.Event]domain.ViewportID),
	}
}

// Subscribe registers a consumer. A non-empty viewport restricts delivery to
// events scoped to that viewport plus unscoped structural events. The
// returned cancel func must be called to release the subscription.
func (sm *StreamManager) Subscribe(viewport domain.ViewportID) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)

	sm.mu.Lock()
	sm.subscribers[ch] = viewport
	sm.mu.Unlock()

	cancel := func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Broadcast delivers ev to every matching subscriber, dropping it for
// consumers whose buffer is full.
func (sm *StreamManager) Broadcast(ev domain.Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch, filter := range sm.subscribers {
		if filter != "" && ev.Viewport != "" && ev.Viewport != filter {
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (sm *StreamManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}
