// Package realtime fans comment events out to WebSocket viewers. Events
// go through Redis pub/sub when configured so every API instance sees
// them; the in-process Hub delivers to local subscribers.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/resepia/backend/internal/metrics"
)

// EventCommentCreated is the only event type pushed today
const EventCommentCreated = "comment.created"

// Event is the JSON envelope sent to subscribers
type Event struct {
	Type    string      `json:"type"`
	Comment interface{} `json:"comment,omitempty"`
}

// CommentTopic names the topic carrying new comments of a recipe
func CommentTopic(recipeID string) string {
	return "recipe:" + recipeID
}

// Publisher delivers a payload to every subscriber of topic
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscription receives payloads for one topic until closed
type Subscription struct {
	C     <-chan []byte
	ch    chan []byte
	topic string
	hub   *Hub
	once  sync.Once
}

// Close unsubscribes; it is safe to call more than once
func (s *Subscription) Close() {
	s.hub.remove(s, false)
}

// Hub is an in-process topic fan-out. Slow subscribers are dropped
// instead of blocking publishers.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Subscription]struct{}
	buffer  int
	metrics *metrics.Collector
	logger  *zap.Logger
}

var _ Publisher = (*Hub)(nil)

func NewHub(buffer int, m *metrics.Collector, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		topics:  make(map[string]map[*Subscription]struct{}),
		buffer:  buffer,
		metrics: m,
		logger:  log,
	}
}

// Subscribe registers interest in topic
func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan []byte, h.buffer)
	sub := &Subscription{C: ch, ch: ch, topic: topic, hub: h}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	h.metrics.SubscriberAdded()
	return sub
}

// Publish delivers locally; it never blocks on a subscriber
func (h *Hub) Publish(_ context.Context, topic string, payload []byte) error {
	h.Broadcast(topic, payload)
	return nil
}

// Broadcast sends payload to all current subscribers of topic
func (h *Hub) Broadcast(topic string, payload []byte) {
	var slow []*Subscription

	h.mu.RLock()
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- payload:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("Dropping slow subscriber", zap.String("topic", topic))
		h.remove(sub, true)
	}
}

// Count returns the number of subscribers of topic
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) remove(sub *Subscription, dropped bool) {
	sub.once.Do(func() {
		h.mu.Lock()
		if subs, ok := h.topics[sub.topic]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.topics, sub.topic)
			}
		}
		close(sub.ch)
		h.mu.Unlock()

		h.metrics.SubscriberRemoved()
		if dropped {
			h.metrics.SubscriberDropped()
		}
	})
}
