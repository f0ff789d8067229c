// Package bus provides a typed, priority-ordered publish/subscribe registry
// that decouples gameplay code from monetization logic.
//
// Dispatch is synchronous and re-entrant: a handler may Raise further events
// or Register/Unregister subscribers while a dispatch is in progress. The bus
// is intended for single-logical-thread use driven by the game loop;
// background goroutines must marshal onto that loop (see package dispatch)
// before raising events.
//
// Go has no weak references usable for subscriber lifetime, so unregistration
// is explicit: owners must Unregister their handlers on teardown.
package bus

import (
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// Handler receives events of a single type.
type Handler[T any] interface {
	Handle(ev T)
}

// HandlerFunc adapts a closure to a Handler. Closures are not comparable, so
// a HandlerFunc registration is never deduplicated and cannot be removed via
// Unregister; keep a reference to the wrapper or use a pointer-receiver
// handler when either matters.
type HandlerFunc[T any] func(ev T)

// Handle calls f(ev).
func (f HandlerFunc[T]) Handle(ev T) { f(ev) }

type entry struct {
	priority int
	seq      uint64
	ident    any
	invoke   func(ev any)
	removed  bool
}

// Bus is the process-wide event registry. The zero value is not usable; call
// New.
type Bus struct {
	mu      sync.Mutex
	nextSeq uint64
	byType  map[reflect.Type][]*entry
	logger  *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		byType: make(map[reflect.Type][]*entry),
		logger: logger,
	}
}

func eventType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// sameHandler compares two handlers by identity. Handlers with a
// non-comparable dynamic type (funcs, slices) never compare equal.
func sameHandler(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// Register adds h to the bucket for event type T at the given priority.
// Lower priority dispatches first; ties dispatch in registration order.
// Registering a handler already present for T (by identity) is a no-op, so a
// subscriber receives at most one dispatch per Raise.
func Register[T any](b *Bus, h Handler[T], priority int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := eventType[T]()
	for _, e := range b.byType[t] {
		if sameHandler(e.ident, any(h)) {
			return
		}
	}

	b.nextSeq++
	e := &entry{
		priority: priority,
		seq:      b.nextSeq,
		ident:    h,
		invoke:   func(ev any) { h.Handle(ev.(T)) },
	}
	entries := append(b.byType[t], e)
	slices.SortStableFunc(entries, func(a, b *entry) int {
		if a.priority != b.priority {
			return a.priority - b.priority
		}
		return int(a.seq) - int(b.seq)
	})
	b.byType[t] = entries
}

// Unregister removes h from all priority buckets for event type T. A handler
// removed while a Raise for T is in progress receives no further delivery in
// that dispatch. Unknown handlers are a no-op.
func Unregister[T any](b *Bus, h Handler[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := eventType[T]()
	entries := b.byType[t]
	for i, e := range entries {
		if sameHandler(e.ident, any(h)) {
			e.removed = true
			b.byType[t] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.byType[t]) == 0 {
		delete(b.byType, t)
	}
}

// Raise dispatches ev synchronously, in priority order, to every handler
// registered for T. Dispatch iterates over a snapshot, so handlers may mutate
// the registry mid-dispatch. A panicking handler is recovered and logged and
// does not block the remaining handlers.
func Raise[T any](b *Bus, ev T) {
	b.mu.Lock()
	snapshot := slices.Clone(b.byType[eventType[T]()])
	b.mu.Unlock()

	for _, e := range snapshot {
		if e.removed {
			continue
		}
		b.safeInvoke(e, ev)
	}
}

func (b *Bus) safeInvoke(e *entry, ev any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked, continuing dispatch",
				"event", reflect.TypeOf(ev).String(), "panic", r)
		}
	}()
	e.invoke(ev)
}
