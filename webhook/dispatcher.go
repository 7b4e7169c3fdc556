package webhook

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-onboarding/core"
)

// EventHandler processes one parsed billing event.
type EventHandler interface {
	Handle(ctx context.Context, event core.InboundEvent) error
}

type EventHandlerFunc func(ctx context.Context, event core.InboundEvent) error

func (f EventHandlerFunc) Handle(ctx context.Context, event core.InboundEvent) error {
	return f(ctx, event)
}

// Dispatcher routes events to handlers by event type. Unknown types are
// acknowledged without side effects so new provider event types never
// break ingestion.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[string]EventHandler{}}
}

func (d *Dispatcher) Register(eventType string, handler EventHandler) error {
	if d == nil {
		return fmt.Errorf("webhook: dispatcher is not configured")
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return fmt.Errorf("webhook: event type is required")
	}
	if handler == nil {
		return fmt.Errorf("webhook: handler is required for %q", eventType)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[eventType]; exists {
		return fmt.Errorf("webhook: handler already registered for %q", eventType)
	}
	d.handlers[eventType] = handler
	return nil
}

// Dispatch returns handled=false with a nil error for unknown event
// types.
func (d *Dispatcher) Dispatch(ctx context.Context, event core.InboundEvent) (bool, error) {
	if d == nil {
		return false, fmt.Errorf("webhook: dispatcher is not configured")
	}
	d.mu.RLock()
	handler, ok := d.handlers[strings.TrimSpace(event.Type)]
	d.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := handler.Handle(ctx, event); err != nil {
		return true, err
	}
	return true, nil
}

func (d *Dispatcher) Handles(eventType string) bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[strings.TrimSpace(eventType)]
	return ok
}
