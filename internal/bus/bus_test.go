package bus

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingEvent struct {
	N int
}

type pongEvent struct{}

type recorder struct {
	got []int
}

func (r *recorder) Handle(ev pingEvent) {
	r.got = append(r.got, ev.N)
}

func newTestBus() *Bus {
	return New(slog.Default())
}

func TestRegisterDeduplicatesByIdentity(t *testing.T) {
	b := newTestBus()
	r := &recorder{}

	Register[pingEvent](b, r, 0)
	Register[pingEvent](b, r, 0)
	Register[pingEvent](b, r, 5) // different priority, same subscriber

	Raise(b, pingEvent{N: 1})

	assert.Equal(t, []int{1}, r.got, "duplicate registration must yield exactly one dispatch")
}

func TestPriorityOrdering(t *testing.T) {
	b := newTestBus()
	var order []string

	append1 := func(name string) Handler[pingEvent] {
		return HandlerFunc[pingEvent](func(pingEvent) { order = append(order, name) })
	}

	Register(b, append1("late"), 10)
	Register(b, append1("first"), -5)
	Register(b, append1("mid-a"), 0)
	Register(b, append1("mid-b"), 0) // same priority, registered after mid-a

	Raise(b, pingEvent{})

	assert.Equal(t, []string{"first", "mid-a", "mid-b", "late"}, order)
}

func TestUnregisterMidDispatch(t *testing.T) {
	b := newTestBus()
	victim := &recorder{}

	remover := HandlerFunc[pingEvent](func(pingEvent) {
		Unregister[pingEvent](b, victim)
	})

	Register[pingEvent](b, remover, 0)
	Register[pingEvent](b, victim, 1)

	require.NotPanics(t, func() { Raise(b, pingEvent{N: 1}) })
	assert.Empty(t, victim.got, "subscriber unregistered mid-dispatch must not receive the event")

	Raise(b, pingEvent{N: 2})
	assert.Empty(t, victim.got)
}

func TestReentrantRaise(t *testing.T) {
	b := newTestBus()
	var pongs int

	Register(b, HandlerFunc[pongEvent](func(pongEvent) { pongs++ }), 0)
	Register(b, HandlerFunc[pingEvent](func(pingEvent) { Raise(b, pongEvent{}) }), 0)

	Raise(b, pingEvent{})
	assert.Equal(t, 1, pongs)
}

func TestRegisterMidDispatchDoesNotAffectCurrentRaise(t *testing.T) {
	b := newTestBus()
	late := &recorder{}

	Register(b, HandlerFunc[pingEvent](func(pingEvent) {
		Register[pingEvent](b, late, 0)
	}), 0)

	Raise(b, pingEvent{N: 1})
	assert.Empty(t, late.got, "handler registered mid-dispatch joins the next raise")

	Raise(b, pingEvent{N: 2})
	assert.Equal(t, []int{2}, late.got)
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	b := newTestBus()
	after := &recorder{}

	Register(b, HandlerFunc[pingEvent](func(pingEvent) { panic("boom") }), 0)
	Register[pingEvent](b, after, 1)

	require.NotPanics(t, func() { Raise(b, pingEvent{N: 7}) })
	assert.Equal(t, []int{7}, after.got)
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	b := newTestBus()
	r := &recorder{}

	require.NotPanics(t, func() { Unregister[pingEvent](b, r) })

	Register[pingEvent](b, r, 0)
	Unregister[pingEvent](b, r)
	Raise(b, pingEvent{N: 1})
	assert.Empty(t, r.got)
}

func TestEventTypesAreIndependent(t *testing.T) {
	b := newTestBus()
	r := &recorder{}
	var pongs int

	Register[pingEvent](b, r, 0)
	Register(b, HandlerFunc[pongEvent](func(pongEvent) { pongs++ }), 0)

	Raise(b, pongEvent{})
	assert.Empty(t, r.got)
	assert.Equal(t, 1, pongs)
}
