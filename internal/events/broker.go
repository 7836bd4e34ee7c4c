// Package events provides real-time streaming of routing decisions.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Event kinds published by the routing pipeline.
const (
	KindResolve  = "resolve"
	KindDispatch = "dispatch"
	KindAsk      = "ask"
)

// Event is one routing decision: a host classification, a forwarded
// request, or a certificate authorization check.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Host    string    `json:"host"`
	Outcome string    `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
}

// Subscriber receives a filtered stream of events.
type Subscriber struct {
	ID        string
	Kind      string // "" for all kinds
	Ch        chan *Event
	CreatedAt time.Time
}

// Broker manages event subscriptions and publishing.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	logger      *slog.Logger
}

// NewBroker creates a new event broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe creates a subscription. kind narrows the stream to one event
// kind; empty subscribes to everything.
func (b *Broker) Subscribe(kind string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:        generateSubscriberID(),
		Kind:      kind,
		Ch:        make(chan *Event, 100),
		CreatedAt: time.Now(),
	}

	b.subscribers[sub.ID] = sub
	b.logger.Debug("subscriber added", "subscriber_id", sub.ID, "kind", kind)

	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("subscriber removed", "subscriber_id", sub.ID)
	}
}

// Publish sends an event to all matching subscribers. Publishing never
// blocks the request path: a slow subscriber loses events instead.
func (b *Broker) Publish(event *Event) {
	if event == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.Kind != "" && sub.Kind != event.Kind {
			continue
		}
		select {
		case sub.Ch <- event:
		default:
			b.logger.Warn("subscriber channel full, dropping event",
				"subscriber_id", sub.ID,
				"kind", event.Kind,
			)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func generateSubscriberID() string {
	return time.Now().Format("20060102150405.000000000")
}
