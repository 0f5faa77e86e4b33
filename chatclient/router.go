package chatclient

import (
	"sync"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
)

// Handler receives the typed payload of one event. The concrete type is
// fixed per event name (see package wire), so a handler for
// wire.EventNewMessage can assert models.Message unconditionally.
type Handler func(payload any)

// Subscription identifies one registered handler. Go functions are not
// comparable, so removal is by handle rather than by reference.
type Subscription struct {
	event string
	id    uint64
}

type registration struct {
	id uint64
	fn Handler
}

type eventRouter struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]registration
}

func newEventRouter() *eventRouter {
	return &eventRouter{handlers: make(map[string][]registration)}
}

func (r *eventRouter) on(event string, fn Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.handlers[event] = append(r.handlers[event], registration{id: r.nextID, fn: fn})
	return Subscription{event: event, id: r.nextID}
}

// off removes a handler. Removing one that is absent is a no-op.
func (r *eventRouter) off(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	regs := r.handlers[sub.event]
	for i, reg := range regs {
		if reg.id == sub.id {
			r.handlers[sub.event] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// dispatch fires handlers in registration order, synchronously on the
// calling goroutine. Each invocation is recover-wrapped so one panicking
// handler cannot starve the rest.
func (r *eventRouter) dispatch(event string, payload any) {
	r.mu.Lock()
	regs := make([]registration, len(r.handlers[event]))
	copy(regs, r.handlers[event])
	r.mu.Unlock()

	for _, reg := range regs {
		safeCall(event, reg.fn, payload)
	}
}

func (r *eventRouter) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string][]registration)
}

func safeCall(event string, fn Handler, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.L().Error().Str("event", event).Interface("panic", rec).Msg("event handler panicked")
		}
	}()
	fn(payload)
}
