package services

import (
	"sync"

	"virtual-campus/logger"
	"virtual-campus/models"
)

const defaultSubscriberBuffer = 16

type subscription struct {
	scope string
	ch    chan models.UnlockEvent
}

// UnlockNotifier fans unlock events out to in-process subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the event.
type UnlockNotifier struct {
	buffer int

	mu   sync.RWMutex
	next uint64
	subs map[uint64]*subscription
}

func NewUnlockNotifier(buffer int) *UnlockNotifier {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &UnlockNotifier{buffer: buffer, subs: make(map[uint64]*subscription)}
}

// Subscribe registers for events of one scope, or of every scope when scope is "".
// The returned cancel func closes the channel and is safe to call more than once.
func (n *UnlockNotifier) Subscribe(scope string) (<-chan models.UnlockEvent, func()) {
	n.mu.Lock()
	id := n.next
	n.next++
	sub := &subscription{scope: scope, ch: make(chan models.UnlockEvent, n.buffer)}
	n.subs[id] = sub
	n.mu.Unlock()
	logger.Debug().Str("scope", scope).Uint64("subscription", id).Msg("[NOTIFY] subscribed")

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(sub.ch)
			logger.Debug().Str("scope", scope).Uint64("subscription", id).Msg("[NOTIFY] unsubscribed")
		})
	}
	return sub.ch, cancel
}

func (n *UnlockNotifier) Publish(event models.UnlockEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, sub := range n.subs {
		if sub.scope != "" && sub.scope != event.Scope {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			logger.Warn().Str("scope", event.Scope).Str("badge", event.Badge.ID).
				Msg("[NOTIFY] subscriber buffer full, event dropped")
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (n *UnlockNotifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
