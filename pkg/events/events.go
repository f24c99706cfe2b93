package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event raised by one server's local
// components, for diagnostics and debug subscribers (spec §4.2's
// cross-rank notifications travel over pkg/transport/pkg/xsync instead;
// this is a same-process broker, not part of the wire protocol).
type EventType string

const (
	EventDatumClosed       EventType = "datum.closed"
	EventDatumSubscript    EventType = "datum.subscript"
	EventContainerResolved EventType = "container.reference_resolved"
	EventWorkStolenOut     EventType = "work.stolen_out"
	EventWorkStolenIn      EventType = "work.stolen_in"
	EventSyncRejected      EventType = "sync.rejected"
	EventSyncDeferred      EventType = "sync.deferred"
	EventCheckpointFlushed EventType = "checkpoint.flushed"
	EventCheckpointCRCFail EventType = "checkpoint.crc_failure"
	EventServerShutdown    EventType = "server.shutdown"
)

// Event represents a single local occurrence worth surfacing outside the
// component that raised it (e.g. to a debug log tail or an admin socket).
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// New creates an Event with a fresh uuid ID and the current timestamp.
func New(typ EventType, message string, metadata map[string]string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now(),
		Message:   message,
		Metadata:  metadata,
	}
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	// Set timestamp and ID if not already stamped (e.g. by New)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	default:
		// Event channel full: drop the event rather than block the publisher.
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
