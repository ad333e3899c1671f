// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package event carries in-process notifications from projection runs to
// any interested subscriber. Delivery is best effort: a projection never
// waits on, or depends on, its subscribers.
package event

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize = 20
	AsyncQueueSize = 1000
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Subscriber receives events from the bus. Close must be idempotent.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// EventBus fans events out to subscribers by type. Asynchronous publishes
// are delivered by a single worker so subscribers observe them in publish
// order.
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	metrics     *eventMetrics
	logger      *slog.Logger
	asyncQueue  chan Event
	stopCh      chan struct{}
	workerWg    sync.WaitGroup
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
	stopMu      sync.RWMutex
	stopped     bool
}

// NewEventBus creates an EventBus and starts its delivery worker
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		logger:      logger,
		asyncQueue:  make(chan Event, AsyncQueueSize),
		stopCh:      make(chan struct{}),
	}
	if promRegistry != nil {
		e.metrics = newEventMetrics(promRegistry)
	}
	e.workerWg.Add(1)
	go e.asyncWorker()
	return e
}

func (e *EventBus) asyncWorker() {
	defer e.workerWg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case evt := <-e.asyncQueue:
			e.Publish(evt.Type, evt)
		}
	}
}

// channelSubscriber delivers events on a buffered channel. Deliver blocks
// while the channel is full until the subscriber is closed.
type channelSubscriber struct {
	ch        chan Event
	done      chan struct{}
	mu        sync.RWMutex
	closeOnce sync.Once
	closed    bool
}

func newChannelSubscriber(buffer int) *channelSubscriber {
	return &channelSubscriber{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

func (c *channelSubscriber) Deliver(evt Event) error {
	// The read lock keeps Close from closing the channel mid-send
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
	case <-c.done:
	}
	return nil
}

func (c *channelSubscriber) Close() {
	// Release any blocked Deliver before taking the write lock
	c.closeOnce.Do(func() { close(c.done) })
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

func subscriberKind(sub Subscriber) string {
	if _, ok := sub.(*channelSubscriber); ok {
		return "in-memory"
	}
	return "custom"
}

// Subscribe returns a channel receiving events of the given type. The
// channel is closed on Unsubscribe or Stop.
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	chSub := newChannelSubscriber(EventQueueSize)
	subId := e.RegisterSubscriber(eventType, chSub)
	return subId, chSub.ch
}

// SubscribeFunc calls handlerFunc for every event of the given type from a
// dedicated goroutine
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	go func() {
		for evt := range evtCh {
			handlerFunc(evt)
		}
	}()
	return subId
}

// RegisterSubscriber adds a custom subscriber and returns its id
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][subId] = sub
	e.metrics.subscriberAdded(eventType, subscriberKind(sub))
	return subId
}

// Unsubscribe removes a subscriber and closes it
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	sub, ok := e.subscribers[eventType][subId]
	if ok {
		delete(e.subscribers[eventType], subId)
		if len(e.subscribers[eventType]) == 0 {
			delete(e.subscribers, eventType)
		}
		e.metrics.subscriberRemoved(eventType, subscriberKind(sub))
	}
	e.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// Publish delivers an event to every subscriber of its type before
// returning. Subscribers that fail delivery are removed.
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	subs := make(map[EventSubscriberId]Subscriber, len(e.subscribers[eventType]))
	for id, sub := range e.subscribers[eventType] {
		subs[id] = sub
	}
	e.mu.RUnlock()
	for id, sub := range subs {
		if err := deliver(sub, evt); err != nil {
			e.logger.Debug(
				"event delivery error",
				"component", "event",
				"type", eventType,
				"error", err,
			)
			e.metrics.deliveryError(eventType, subscriberKind(sub))
			e.Unsubscribe(eventType, id)
		}
	}
	e.metrics.published(eventType)
}

// deliver converts a panicking subscriber into a delivery error
func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// PublishAsync queues an event for delivery and returns immediately. It
// returns false when the bus is stopped or the queue is full, in which case
// the event is dropped.
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	evt.Type = eventType
	select {
	case e.asyncQueue <- evt:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"component", "event",
			"type", eventType,
		)
		e.metrics.deliveryError(eventType, "async-dropped")
		return false
	}
}

// Stop halts asynchronous delivery and closes every subscriber. Queued
// events that were not yet delivered are dropped.
func (e *EventBus) Stop() {
	e.stopMu.Lock()
	if e.stopped {
		e.stopMu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.stopMu.Unlock()

	e.mu.Lock()
	subs := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
	e.mu.Unlock()
	// Closing subscribers first unblocks a worker stuck delivering
	for _, evtTypeSubs := range subs {
		for _, sub := range evtTypeSubs {
			sub.Close()
		}
	}
	e.workerWg.Wait()
	e.metrics.reset()
}
