// Package orderbook is the matching engine: limit order placement and
// cancellation, market orders, swaps through the book, administration of
// books and the per-block expiration service.
//
// Placing a limit order crosses the spread when the book trades: the part
// of the order that meets resting orders at or better than its price is
// executed as a market order against them, best price first and in time
// order within a price, and only the remainder rests at the limit price. A
// remainder below the minimal lot is executed too if the opposite side
// holds enough volume, otherwise it is dropped. Books that only accept
// placement reject a crossing price with ErrInvalidLimitOrderPrice.
//
// Every operation computes a MarketChange without touching state and then
// applies it in one step. Operations run on a write buffer, so a failed
// operation leaves no writes and no events behind.
package orderbook

import (
	"fmt"

	"github.com/tendermint/orderbook/libs/log"
	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/types"
)

// Module implements the order book operations over the state passed in a
// Context. It holds no state of its own and is safe to share.
type Module struct {
	params    types.Params
	limits    store.Limits
	bank      Bank
	assets    AssetRegistry
	dexes     DEXRegistry
	authority Authority

	logger  log.Logger
	metrics *Metrics
}

// Option sets an optional parameter on the Module.
type Option func(*Module)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Module) { m.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(m *Module) { m.logger = logger }
}

func NewModule(
	params types.Params,
	bank Bank,
	assets AssetRegistry,
	dexes DEXRegistry,
	authority Authority,
	options ...Option,
) *Module {
	m := &Module{
		params:    params,
		limits:    store.LimitsFromParams(params),
		bank:      bank,
		assets:    assets,
		dexes:     dexes,
		authority: authority,
		logger:    log.NewNopLogger(),
		metrics:   NopMetrics(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Params returns the engine constants.
func (m *Module) Params() types.Params {
	return m.params
}

// DataLayer returns a direct data layer over the state of ctx.
func (m *Module) DataLayer(ctx Context) store.DataLayer {
	return store.NewStorageLayer(ctx.Store, m.limits)
}

// cached runs fn over a cache layer and flushes it into ctx.Store if fn
// succeeds.
func (m *Module) cached(ctx Context, fn func(dl store.DataLayer) error) error {
	cache := store.NewCacheLayer(ctx.Store, m.limits)
	if err := fn(cache); err != nil {
		return err
	}
	return cache.Commit()
}

func (m *Module) ensureAuthorized(caller types.AccountID) error {
	if m.authority == nil || !m.authority.IsAuthorized(caller) {
		return fmt.Errorf("%w: %s", types.ErrUnauthorized, caller)
	}
	return nil
}

// applyMarketChange settles the payment and then mutates the book: full
// executions, partial executions, cancellations, forced updates and
// placements, in that order and in id order within each group.
func (m *Module) applyMarketChange(ctx Context, book types.OrderBook, dl store.DataLayer, change MarketChange) error {
	if !change.Payment.IsEmpty() {
		if err := change.Payment.ExecuteAll(ctx.Store, m.bank, m.bank); err != nil {
			return err
		}
	}

	for _, id := range sortedIDs(change.ToFullExecute) {
		order := change.ToFullExecute[id]
		if err := dl.DeleteLimitOrder(book.ID, id); err != nil {
			return err
		}
		if err := m.unschedule(ctx, order.ExpiresAt, book.ID, id); err != nil {
			return err
		}
		ctx.emit(types.NewEvent(types.EventLimitOrderFilled, book.ID,
			"order_id", id,
			"owner", string(order.Owner),
		))
	}

	for _, id := range sortedIDs(change.ToPartExecute) {
		pe := change.ToPartExecute[id]
		if err := dl.UpdateLimitOrderAmount(book.ID, id, pe.Order.Amount); err != nil {
			return err
		}
		ctx.emit(types.NewEvent(types.EventLimitOrderExecuted, book.ID,
			"order_id", id,
			"owner", string(pe.Order.Owner),
			"side", pe.Order.Side,
			"price", pe.Order.Price,
			"amount", pe.Executed,
		))
	}

	for _, id := range sortedIDs(change.ToCancel) {
		order := change.ToCancel[id]
		if err := dl.DeleteLimitOrder(book.ID, id); err != nil {
			return err
		}
		err := m.unschedule(ctx, order.ExpiresAt, book.ID, id)
		if err != nil && !change.IgnoreUnscheduleError {
			return err
		}
	}

	for _, id := range sortedIDs(change.ToForceUpdate) {
		order := change.ToForceUpdate[id]
		if err := dl.UpdateLimitOrderAmount(book.ID, id, order.Amount); err != nil {
			return err
		}
		ctx.emit(types.NewEvent(types.EventLimitOrderUpdated, book.ID,
			"order_id", id,
			"owner", string(order.Owner),
			"amount", order.Amount,
		))
	}

	for _, id := range sortedIDs(change.ToPlace) {
		order := change.ToPlace[id]
		if err := dl.InsertLimitOrder(book.ID, order); err != nil {
			return err
		}
		if err := m.schedule(ctx, order.ExpiresAt, book.ID, id); err != nil {
			return err
		}
		ctx.emit(types.NewEvent(types.EventLimitOrderPlaced, book.ID,
			"order_id", id,
			"owner", string(order.Owner),
			"side", order.Side,
			"price", order.Price,
			"amount", order.Amount,
			"expires_at", order.ExpiresAt,
		))
	}

	m.metrics.ExecutedOrders.Add(float64(change.CountOfExecutedOrders()))
	m.metrics.PlacedOrders.Add(float64(len(change.ToPlace)))
	return nil
}
