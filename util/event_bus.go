// util/event_bus.go

package util

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/model"
)

// EventHandler is a function that handles a session-lifecycle event
type EventHandler func(context.Context, model.LifecycleEvent) error

// EventBus is the session-lifecycle signal channel. The idle monitor, the
// cache-purge logic, and the analytics recorder subscribe to it; publishers
// are the shell endpoints and any code observing an upstream 401.
type EventBus struct {
	subscribers map[model.LifecycleEventType][]EventHandler
	mu          sync.RWMutex
	errorChan   chan error
}

// NewEventBus creates a new EventBus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[model.LifecycleEventType][]EventHandler),
		errorChan:   make(chan error, 100), // Buffer size can be adjusted
	}
}

// Subscribe adds a new subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType model.LifecycleEventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
}

// Publish delivers an event to all subscribers. Dispatch is synchronous:
// an "expired" signal must have preempted the idle monitor before the
// publisher continues, so handlers run on the caller's goroutine in
// subscription order. Handler errors go to the error channel and never
// block delivery to later handlers.
func (eb *EventBus) Publish(ctx context.Context, event model.LifecycleEvent) {
	eb.mu.RLock()
	handlers, exists := eb.subscribers[event.Type]
	eb.mu.RUnlock()

	if !exists {
		return
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			select {
			case eb.errorChan <- fmt.Errorf("lifecycle handler error: %w", err):
			default:
				// If error channel is full, log the error
				logger.Error("Error channel full, logging lifecycle handler error",
					zap.Error(err),
					zap.String("eventType", string(event.Type)))
			}
		}
	}
}

// Start begins draining handler errors
func (eb *EventBus) Start(ctx context.Context) {
	go eb.processErrors(ctx)
}

// processErrors handles errors from event handlers
func (eb *EventBus) processErrors(ctx context.Context) {
	for {
		select {
		case err := <-eb.errorChan:
			logger.Error("Lifecycle handler error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}
