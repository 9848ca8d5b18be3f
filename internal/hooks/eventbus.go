// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hooks distributes pipeline events to in-process subscribers and to
// user-defined automation hooks.
package hooks

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultQueueSize bounds the number of events waiting for async delivery.
	DefaultQueueSize = 1000
	// drainTimeout bounds how long Shutdown waits for queued events.
	drainTimeout = 5 * time.Second
)

// Subscription is a handle for a registered subscriber.
type Subscription struct {
	ID          string
	Event       HookEvent
	Callback    func(*EventContext)
	Filter      func(*EventContext) bool
	Unsubscribe func()
}

// BusStats is a point-in-time view of event delivery.
type BusStats struct {
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
	Queued      int   `json:"queued"`
	Subscribers int   `json:"subscribers"`
}

// EventBus fans pipeline events out to subscribers. Async events go through a
// bounded queue that Shutdown drains, so decisions published just before
// shutdown still reach the audit store.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[HookEvent][]*Subscription
	queue       chan *EventContext
	closed      bool
	drained     chan struct{}
	stopOnce    sync.Once

	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewEventBus creates a bus with the default queue size.
func NewEventBus() *EventBus {
	return NewEventBusSize(DefaultQueueSize)
}

// NewEventBusSize creates a bus whose async queue holds size events.
func NewEventBusSize(size int) *EventBus {
	if size <= 0 {
		size = DefaultQueueSize
	}
	bus := &EventBus{
		subscribers: make(map[HookEvent][]*Subscription),
		queue:       make(chan *EventContext, size),
		drained:     make(chan struct{}),
	}
	go bus.processQueue()
	return bus
}

// Subscribe registers a callback for a specific event type.
func (b *EventBus) Subscribe(event HookEvent, callback func(*EventContext)) *Subscription {
	return b.SubscribeWithFilter(event, callback, nil)
}

// SubscribeTenant registers a callback that only sees events of one tenant.
func (b *EventBus) SubscribeTenant(event HookEvent, tenantID string, callback func(*EventContext)) *Subscription {
	return b.SubscribeWithFilter(event, callback, func(evt *EventContext) bool {
		return evt.TenantID == tenantID
	})
}

// SubscribeWithFilter registers a callback with an optional filter function.
func (b *EventBus) SubscribeWithFilter(event HookEvent, callback func(*EventContext), filter func(*EventContext) bool) *Subscription {
	sub := &Subscription{
		ID:       uuid.NewString(),
		Event:    event,
		Callback: callback,
		Filter:   filter,
	}
	sub.Unsubscribe = func() { b.unsubscribe(sub) }

	b.mu.Lock()
	b.subscribers[event] = append(b.subscribers[event], sub)
	b.mu.Unlock()
	return sub
}

func (b *EventBus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.Event]
	for i, s := range subs {
		if s.ID == sub.ID {
			// Copy so that in-flight Publish snapshots stay intact.
			next := make([]*Subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			b.subscribers[sub.Event] = append(next, subs[i+1:]...)
			return
		}
	}
}

// Publish delivers evt to every matching subscriber on the calling goroutine.
// A panicking subscriber is logged and skipped.
func (b *EventBus) Publish(evt *EventContext) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	subs := b.subscribers[evt.Event]
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.Filter != nil && !sub.Filter(evt) {
			continue
		}
		b.deliver(sub, evt)
	}
}

func (b *EventBus) deliver(sub *Subscription, evt *EventContext) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"request_id": evt.RequestID,
				"tenant_id":  evt.TenantID,
			}).Errorf("panic in %s subscriber %s: %v", evt.Event, sub.ID, r)
		}
	}()
	sub.Callback(evt)
	b.delivered.Add(1)
}

// PublishAsync queues evt for delivery. Events are dropped when the queue is
// full or the bus has been shut down.
func (b *EventBus) PublishAsync(evt *EventContext) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	// The read lock keeps Shutdown from closing the queue during the send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return
	}

	select {
	case b.queue <- evt:
	default:
		b.dropped.Add(1)
		log.WithField("tenant_id", evt.TenantID).Warnf("event queue full, dropping %s", evt.Event)
	}
}

func (b *EventBus) processQueue() {
	defer close(b.drained)
	for evt := range b.queue {
		b.Publish(evt)
	}
}

// Shutdown stops accepting async events and waits for queued ones to be
// delivered. It is safe to call more than once.
func (b *EventBus) Shutdown() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		pending := len(b.queue)
		close(b.queue)
		b.mu.Unlock()

		select {
		case <-b.drained:
		case <-time.After(drainTimeout):
			log.Warnf("event bus shutdown timed out with %d events pending", pending)
		}
	})
}

// Stats reports delivery counters.
func (b *EventBus) Stats() BusStats {
	b.mu.RLock()
	n := 0
	for _, subs := range b.subscribers {
		n += len(subs)
	}
	b.mu.RUnlock()
	return BusStats{
		Delivered:   b.delivered.Load(),
		Dropped:     b.dropped.Load(),
		Queued:      len(b.queue),
		Subscribers: n,
	}
}

// RegisterMetrics exposes the bus counters on reg.
func (b *EventBus) RegisterMetrics(reg prometheus.Registerer) {
	factory := promauto.With(reg)
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "intentrouter_events_delivered_total",
		Help: "Total number of event deliveries to subscribers",
	}, func() float64 { return float64(b.delivered.Load()) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "intentrouter_events_dropped_total",
		Help: "Total number of events dropped because the queue was full or closed",
	}, func() float64 { return float64(b.dropped.Load()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "intentrouter_events_queued",
		Help: "Number of events waiting for async delivery",
	}, func() float64 { return float64(len(b.queue)) })
}
