/*
Package events provides an in-memory event broker for one server's local
diagnostics and debug subscribers.

The events package implements a lightweight event bus for broadcasting a
single server process's internal occurrences — datum closures, container
reference resolutions, steals, sync protocol outcomes, checkpoint activity,
and shutdown — to interested in-process subscribers. It is deliberately
local: the cross-rank notifications the runtime itself depends on (spec
§4.2's "ranks to notify of closure or subscript insertion") travel over
pkg/transport and pkg/xsync as `types.Notification` values, not through
this broker. This package exists for observability — a debug log tail, an
admin socket, or a future webhook forwarder — layered on top without
touching the wire protocol.

# Architecture

The event system provides non-blocking pub/sub messaging with buffered
channels:

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Non-blocking publish                     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Datastore Events:                          │          │
	│  │    - datum.closed                           │          │
	│  │    - datum.subscript                        │          │
	│  │    - container.reference_resolved           │          │
	│  │                                              │          │
	│  │  Steal Events:                              │          │
	│  │    - work.stolen_out                        │          │
	│  │    - work.stolen_in                         │          │
	│  │                                              │          │
	│  │  Sync Protocol Events:                      │          │
	│  │    - sync.rejected                          │          │
	│  │    - sync.deferred                          │          │
	│  │                                              │          │
	│  │  Checkpoint Events:                         │          │
	│  │    - checkpoint.flushed                     │          │
	│  │    - checkpoint.crc_failure                 │          │
	│  │                                              │          │
	│  │  Lifecycle Events:                          │          │
	│  │    - server.shutdown                        │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Subscribers                      │          │
	│  │                                              │          │
	│  │  Debug tail: Print events to stderr         │          │
	│  │  Metrics: Count events for dashboards       │          │
	│  │  Admin socket: Stream to an attached CLI    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Non-blocking publish (buffered channel)
  - Graceful shutdown via stop channel

Event:
  - ID: uuid-generated event identifier (github.com/google/uuid)
  - Type: Event type (datum.closed, sync.rejected, etc.)
  - Timestamp: When event occurred
  - Message: Human-readable description
  - Metadata: Key-value pairs for additional context (e.g. datum_id, peer)

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe()
  - Closed via broker.Unsubscribe()

Event Types:
  - Datastore: datum.closed, datum.subscript, container.reference_resolved
  - Steal: work.stolen_out, work.stolen_in
  - Sync: sync.rejected, sync.deferred
  - Checkpoint: checkpoint.flushed, checkpoint.crc_failure
  - Lifecycle: server.shutdown

# Event Flow

Publish Flow:
 1. Publisher calls broker.Publish(event)
 2. Event added to main event channel (non-blocking)
 3. Broadcast loop receives event
 4. Event sent to all subscriber channels
 5. Subscribers receive event asynchronously
 6. Full subscriber buffers skip (no blocking)

Subscribe Flow:
 1. Subscriber calls broker.Subscribe()
 2. New buffered channel created
 3. Channel registered in subscriber map
 4. Subscriber channel returned
 5. Subscriber receives events via channel
 6. Subscriber processes events in own goroutine

Unsubscribe Flow:
 1. Subscriber calls broker.Unsubscribe(channel)
 2. Channel removed from subscriber map
 3. Channel closed
 4. Subscriber stops receiving events

# Usage

Creating and Starting Broker:

	import "github.com/cuemby/xlb/pkg/events"

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing to Events:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
		}
	}()

Publishing Events:

	broker.Publish(events.New(events.EventCheckpointCRCFail,
		"record at offset 4096 failed CRC check",
		map[string]string{"offset": "4096", "block": "2"}))

Filtering Events by Type:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			switch event.Type {
			case events.EventSyncRejected:
				handleSyncRejected(event)
			case events.EventCheckpointCRCFail:
				handleCRCFailure(event)
			default:
				// Ignore other events
			}
		}
	}()

Complete Example:

	package main

	import (
		"fmt"
		"time"
		"github.com/cuemby/xlb/pkg/events"
	)

	func main() {
		// Create and start broker
		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		// Subscribe to events
		sub := broker.Subscribe()
		defer broker.Unsubscribe(sub)

		// Process events in background
		go func() {
			for event := range sub {
				fmt.Printf("[%s] %s: %s\n",
					event.Timestamp.Format("15:04:05"),
					event.Type,
					event.Message)
			}
		}()

		// Publish events
		broker.Publish(events.New(events.EventWorkStolenOut,
			"transferred 4 units of type 3 to rank 7",
			map[string]string{"peer": "7", "work_type": "3", "count": "4"}))

		broker.Publish(events.New(events.EventSyncDeferred,
			"deferred sync request from rank 2 behind an outstanding request",
			map[string]string{"peer": "2"}))

		// Wait for events to be processed
		time.Sleep(100 * time.Millisecond)
	}

# Integration Points

This package integrates with:

  - pkg/rpcserver: the only publisher. It publishes datum.closed,
    datum.subscript and container.reference_resolved while delivering
    data-store notifications, work.stolen_out/work.stolen_in around steal
    transfers, checkpoint.crc_failure when a checkpoint write fails, and
    server.shutdown
  - cmd/xlb-server: creates and starts the broker

No package in this module publishes sync.rejected, sync.deferred or
checkpoint.flushed, and none subscribes to the broker.

# Event Types Catalog

Datastore Events:

EventDatumClosed:
  - Published when: a datum's write refcount reaches zero and close
    listeners drain (spec §4.1)
  - Metadata: datum_id
  - Subscribers: debug tail, metrics

EventDatumSubscript:
  - Published when: a subscript listener is satisfied by a Store call
  - Metadata: datum_id, subscript
  - Subscribers: debug tail

EventContainerResolved:
  - Published when: a container reference promise resolves
  - Metadata: container_id, subscript, referand_id
  - Subscribers: debug tail

Steal Events:

EventWorkStolenOut:
  - Published when: this server transfers units to a peer's STEAL request
  - Metadata: peer, work_type, count
  - Subscribers: metrics, debug tail

EventWorkStolenIn:
  - Published when: this server receives stolen units from a peer
  - Metadata: peer, work_type
  - Subscribers: metrics, debug tail

Sync Protocol Events:

EventSyncRejected:
  - Describes: a lower-ranked peer's sync request is rejected because
    pending_requests is full (spec §4.4)
  - Metadata: peer
  - Subscribers: metrics, alerting

EventSyncDeferred:
  - Describes: a lower-ranked peer's sync request is queued behind an
    outstanding sync of our own
  - Metadata: peer
  - Subscribers: debug tail

Checkpoint Events:

EventCheckpointFlushed:
  - Describes: the checkpoint log's write buffer is flushed to disk
  - Metadata: bytes, records
  - Subscribers: metrics

EventCheckpointCRCFail:
  - Published when: pkg/rpcserver fails to append a checkpoint record for
    a data-store mutation
  - Metadata: key
  - Subscribers: alerting, debug tail

Lifecycle Events:

EventServerShutdown:
  - Published when: the server shuts down (a SHUTDOWN-SERVER message or a
    Shutdown call), and when a SHUTDOWN-WORKER message is acknowledged
  - Metadata: rank (server shutdown) or worker (worker shutdown)
  - Subscribers: debug tail, admin socket

# Design Patterns

Non-Blocking Publish:
  - Publish sends to buffered channel
  - Returns immediately (no waiting)
  - Events may be dropped if buffer full
  - Trade-off: Throughput over guaranteed delivery

Fan-Out Pattern:
  - Single event broadcast to all subscribers
  - Each subscriber gets own channel
  - Independent processing rates
  - Full buffers skip to prevent blocking

Fire-and-Forget:
  - No acknowledgment from subscribers
  - No retry on delivery failure
  - Simplifies broker implementation
  - Suitable for diagnostics, not the wire protocol's own notifications

Graceful Shutdown:
  - broker.Stop() signals broadcast loop
  - Events still queued in the event channel are not delivered
  - Subscriber channels remain open
  - Explicit Unsubscribe to close channels

# Performance Characteristics

Event Publishing:
  - Latency: < 1µs (channel send)
  - Bottleneck: Subscriber processing speed
  - Non-blocking: Never waits for subscribers

Event Delivery:
  - Per subscriber: ~500ns to 1µs
  - Concurrent: All subscribers updated in parallel
  - Buffer: 50 events per subscriber
  - Overflow: Slow subscribers skip events

Memory Usage:
  - Broker: ~1KB baseline
  - Per subscriber: ~400 bytes (channel overhead)
  - Per event: ~200 bytes (struct + metadata)

Subscriber Count:
  - Recommended: < 10 subscribers (this is a single-process debug bus,
    not a cluster-wide fan-out)

# Troubleshooting

Common Issues:

Events Not Received:
  - Symptom: Subscriber receives no events
  - Check: broker.Start() called
  - Check: Event type matches subscriber filter
  - Check: Subscriber goroutine running
  - Solution: Verify broker started and subscriber loop active

Slow Event Processing:
  - Symptom: High memory usage, event buffer full
  - Cause: Subscriber processing too slow
  - Check: Subscriber goroutine blocked
  - Solution: Process events asynchronously, increase buffer

Events Dropped:
  - Symptom: Missing events in subscriber
  - Cause: Subscriber buffer full (slow processing)
  - Check: SubscriberCount() and event rate
  - Solution: Increase buffer size or process faster

Memory Leak:
  - Symptom: Increasing memory usage over time
  - Cause: Subscribers not unsubscribed
  - Check: SubscriberCount() grows
  - Solution: Always defer broker.Unsubscribe(sub)

# Limitations

Current Limitations:
  - In-memory only (no persistence)
  - No event replay or history
  - No guaranteed delivery (best effort)
  - No topic-based filtering (all events broadcast)
  - Not part of the wire protocol: never a substitute for the
    `types.Notification` values pkg/datastore returns for cross-rank
    delivery

# Best Practices

Do:
  - Always defer broker.Unsubscribe(sub)
  - Process events asynchronously in goroutine
  - Filter events by type at subscriber
  - Include relevant metadata in events
  - Start broker before publishing events

Don't:
  - Block in subscriber event loop
  - Treat this broker as part of the cross-rank notification protocol
  - Forget to unsubscribe (causes leaks)
  - Rely on event delivery for correctness-critical operations

# See Also

  - pkg/datastore for the cross-rank notification model this broker
    deliberately stays out of
  - pkg/xsync for the sync protocol events this broker surfaces locally
  - Pub/sub pattern: https://en.wikipedia.org/wiki/Publish%E2%80%93subscribe_pattern
*/
package events
