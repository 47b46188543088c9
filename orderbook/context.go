package orderbook

import (
	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

// Context is the state one operation runs against.
type Context struct {
	// Store receives every write of the operation.
	Store kv.Store
	// Height is the current block.
	Height int64
	// Time is the ledger time of the current block in milliseconds.
	Time int64

	events *EventManager
}

// NewContext returns a context emitting into events. A nil manager drops
// the events.
func NewContext(db kv.Store, height, time int64, events *EventManager) Context {
	return Context{
		Store:  db,
		Height: height,
		Time:   time,
		events: events,
	}
}

func (ctx Context) emit(events ...types.Event) {
	if ctx.events != nil {
		ctx.events.Emit(events...)
	}
}

// EventManager collects the events of a block or a transaction in emission
// order.
type EventManager struct {
	events []types.Event
}

func NewEventManager() *EventManager {
	return &EventManager{}
}

func (em *EventManager) Emit(events ...types.Event) {
	em.events = append(em.events, events...)
}

// Events returns the collected events.
func (em *EventManager) Events() []types.Event {
	return em.events
}

// atomically runs fn against a write buffer over ctx.Store and a fresh event
// manager. Writes and events reach ctx only if fn succeeds.
func atomically(ctx Context, fn func(ctx Context) error) error {
	overlay := kv.NewOverlay(ctx.Store)
	branch := ctx
	branch.Store = overlay
	branch.events = NewEventManager()

	if err := fn(branch); err != nil {
		overlay.Discard()
		return err
	}
	if err := overlay.Write(); err != nil {
		return err
	}
	ctx.emit(branch.events.Events()...)
	return nil
}
