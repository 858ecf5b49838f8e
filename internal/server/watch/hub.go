// Package watch fans document change notifications out to live
// subscriptions. A notification carries only a topic; subscribers re-read
// the full snapshot when woken.
package watch

import (
	"context"
	"sync"
)

// Notifier publishes change notifications for topics.
type Notifier interface {
	Notify(ctx context.Context, topics ...string)
}

// DocumentTopic names the topic for a single document.
func DocumentTopic(collection, id string) string {
	return "doc:" + collection + "/" + id
}

// QueryTopic names the topic for one owner's documents in a collection.
func QueryTopic(collection, ownerID string) string {
	return "query:" + collection + "@" + ownerID
}

// Hub is an in-process topic registry.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription receives a signal on C after one or more notifications of
// its topic. Signals coalesce: a burst of writes yields at least one wake-up.
type Subscription struct {
	hub   *Hub
	topic string
	ch    chan struct{}
	once  sync.Once
}

// Subscribe registers interest in topic. Callers must Close the subscription.
func (h *Hub) Subscribe(topic string) *Subscription {
	s := &Subscription{hub: h, topic: topic, ch: make(chan struct{}, 1)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][s] = struct{}{}
	return s
}

// Notify wakes every subscriber of the given topics without blocking.
func (h *Hub) Notify(_ context.Context, topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		for s := range h.subs[topic] {
			select {
			case s.ch <- struct{}{}:
			default:
			}
		}
	}
}

// Subscribers reports how many subscriptions a topic has.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

func (s *Subscription) C() <-chan struct{} { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[s.topic], s)
		if len(h.subs[s.topic]) == 0 {
			delete(h.subs, s.topic)
		}
	})
}
