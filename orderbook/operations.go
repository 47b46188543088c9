package orderbook

import (
	"fmt"

	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/types"
)

// PlaceLimitOrder places an order of owner on the book and returns its id.
// A crossing order is executed against the opposite side first and only
// its remainder rests. If nothing remains the id is still consumed and
// returned, but no order with that id ever rests: lookups of it fail with
// ErrUnknownLimitOrder and the fill is reported by the MarketOrderExecuted
// event.
func (m *Module) PlaceLimitOrder(
	ctx Context,
	owner types.AccountID,
	id types.OrderBookID,
	price types.OrderPrice,
	amount types.OrderVolume,
	side types.Side,
	lifespan uint64,
) (types.OrderID, error) {
	var orderID types.OrderID
	err := atomically(ctx, func(ctx Context) error {
		book, err := store.MustGetOrderBook(ctx.Store, id)
		if err != nil {
			return err
		}
		if !book.Status.AllowsPlacement() {
			return fmt.Errorf("%w: %s is %s", types.ErrPlacementOfLimitOrdersIsForbidden, id, book.Status)
		}
		if err := ensureReady(book); err != nil {
			return err
		}

		orderID = book.NextOrderID()
		order := types.NewLimitOrder(orderID, owner, side, price, amount, ctx.Time, lifespan, ctx.Height, m.params)
		if err := book.ValidateLimitOrder(order, m.params); err != nil {
			return err
		}

		err = m.cached(ctx, func(dl store.DataLayer) error {
			if err := m.checkRestrictions(ctx, book, dl, order); err != nil {
				return err
			}
			crossing, err := crosses(dl, book, order)
			if err != nil {
				return err
			}

			change := limitOrderImpact(book, order)
			if crossing {
				if !book.Status.AllowsTrading() {
					return fmt.Errorf("%w: %s crosses the spread of %s", types.ErrInvalidLimitOrderPrice, price, id)
				}
				if change, err = m.crossSpread(book, dl, order); err != nil {
					return err
				}
			}
			if err := m.applyMarketChange(ctx, book, dl, change); err != nil {
				return err
			}
			if change.DealInput != nil {
				m.emitMarketOrder(ctx, book, owner, owner, side, change)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return store.SetOrderBook(ctx.Store, book)
	})
	if err != nil {
		return 0, err
	}
	m.logger.Debug("placed limit order", "book", id, "order", orderID, "owner", owner, "side", side, "price", price, "amount", amount)
	return orderID, nil
}

// CancelLimitOrder cancels an order of caller. Authorized accounts may
// cancel any order.
func (m *Module) CancelLimitOrder(ctx Context, caller types.AccountID, id types.OrderBookID, orderID types.OrderID) error {
	return atomically(ctx, func(ctx Context) error {
		return m.cancelLimitOrder(ctx, caller, id, orderID)
	})
}

// CancelRequest names orders of one book.
type CancelRequest struct {
	OrderBookID types.OrderBookID `json:"order_book_id"`
	OrderIDs    []types.OrderID   `json:"order_ids"`
}

// CancelLimitOrdersBatch cancels several orders of caller across books.
// Either every order is canceled or none is.
func (m *Module) CancelLimitOrdersBatch(ctx Context, caller types.AccountID, requests []CancelRequest) error {
	return atomically(ctx, func(ctx Context) error {
		for _, req := range requests {
			for _, orderID := range req.OrderIDs {
				if err := m.cancelLimitOrder(ctx, caller, req.OrderBookID, orderID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (m *Module) cancelLimitOrder(ctx Context, caller types.AccountID, id types.OrderBookID, orderID types.OrderID) error {
	book, err := store.MustGetOrderBook(ctx.Store, id)
	if err != nil {
		return err
	}
	if !book.Status.AllowsCancellation() {
		return fmt.Errorf("%w: %s is %s", types.ErrCancellationOfLimitOrdersIsForbidden, id, book.Status)
	}
	dl := m.DataLayer(ctx)
	order, err := dl.GetLimitOrder(id, orderID)
	if err != nil {
		return err
	}
	if order.Owner != caller && (m.authority == nil || !m.authority.IsAuthorized(caller)) {
		return fmt.Errorf("%w: %s does not own order %d", types.ErrUnauthorized, caller, orderID)
	}
	return m.cancelOrders(ctx, book, dl, []types.LimitOrder{order}, types.CancelReasonManual)
}

// cancelOrders removes orders from the book, releasing what their owners
// still have locked.
func (m *Module) cancelOrders(ctx Context, book types.OrderBook, dl store.DataLayer, orders []types.LimitOrder, reason types.CancelReason) error {
	change := NewMarketChange(book.ID)
	for _, order := range orders {
		if err := change.Merge(cancelImpact(book, order, false)); err != nil {
			return err
		}
	}
	if err := m.applyMarketChange(ctx, book, dl, change); err != nil {
		return err
	}
	for _, order := range orders {
		ctx.emit(types.NewEvent(types.EventLimitOrderCanceled, book.ID,
			"order_id", order.ID,
			"owner", string(order.Owner),
			"reason", string(reason),
		))
	}
	m.metrics.CanceledOrders.With("reason", string(reason)).Add(float64(len(orders)))
	return nil
}

// ExecuteMarketOrder buys or sells amount of the base asset at the best
// available prices. It returns what owner gave and got.
func (m *Module) ExecuteMarketOrder(
	ctx Context,
	owner types.AccountID,
	id types.OrderBookID,
	side types.Side,
	amount types.OrderVolume,
) (input, output types.OrderAmount, err error) {
	err = atomically(ctx, func(ctx Context) error {
		book, err := store.MustGetOrderBook(ctx.Store, id)
		if err != nil {
			return err
		}
		if err := book.ValidateAmount(amount); err != nil {
			return err
		}
		input, output, err = m.executeMarketOrder(ctx, book, owner, owner, side, amount)
		return err
	})
	return input, output, err
}

func (m *Module) executeMarketOrder(
	ctx Context,
	book types.OrderBook,
	owner, receiver types.AccountID,
	side types.Side,
	amount types.OrderVolume,
) (input, output types.OrderAmount, err error) {
	if !book.Status.AllowsTrading() {
		return input, output, fmt.Errorf("%w: %s is %s", types.ErrTradingIsForbidden, book.ID, book.Status)
	}
	if err := ensureReady(book); err != nil {
		return input, output, err
	}
	if !amount.IsPositive() || !types.IsMultipleOf(amount, book.StepLotSize) {
		return input, output, fmt.Errorf("%w: %s is not a multiple of step %s", types.ErrInvalidOrderAmount, amount, book.StepLotSize)
	}

	err = m.cached(ctx, func(dl store.DataLayer) error {
		change, err := m.marketImpact(book, dl, side, owner, receiver, amount)
		if err != nil {
			return err
		}
		if change.DealInput == nil || change.DealOutput == nil {
			return types.ErrPriceCalculationFailed
		}
		if err := m.applyMarketChange(ctx, book, dl, change); err != nil {
			return err
		}
		input, output = *change.DealInput, *change.DealOutput
		m.emitMarketOrder(ctx, book, owner, receiver, side, change)
		return nil
	})
	return input, output, err
}

func (m *Module) emitMarketOrder(ctx Context, book types.OrderBook, owner, receiver types.AccountID, side types.Side, change MarketChange) {
	base, quote := *change.DealOutput, *change.DealInput
	if side == types.Sell {
		base, quote = quote, base
	}
	ctx.emit(types.NewEvent(types.EventMarketOrderExecuted, book.ID,
		"owner", string(owner),
		"receiver", string(receiver),
		"side", side,
		"amount", base.Value(),
		"average_price", types.Div(quote.Value(), base.Value()),
	))
	m.metrics.MarketOrders.Add(1)
}

// limitOrders returns every order resting on the book: bids, then asks, each
// in matching priority.
func limitOrders(dl store.DataLayer, book types.OrderBook) ([]types.LimitOrder, error) {
	var orders []types.LimitOrder
	for _, side := range []types.Side{types.Buy, types.Sell} {
		levels, err := store.GetAggregated(dl, side, book.ID)
		if err != nil {
			return nil, err
		}
		for _, level := range levels.Levels(side) {
			ids, err := store.GetLimitOrdersByPrice(dl, side, book.ID, level.Price)
			if err != nil {
				return nil, err
			}
			for _, orderID := range ids {
				order, err := dl.GetLimitOrder(book.ID, orderID)
				if err != nil {
					return nil, err
				}
				orders = append(orders, order)
			}
		}
	}
	return orders, nil
}

// LimitOrders returns every order resting on the book.
func (m *Module) LimitOrders(ctx Context, id types.OrderBookID) ([]types.LimitOrder, error) {
	book, err := store.MustGetOrderBook(ctx.Store, id)
	if err != nil {
		return nil, err
	}
	return limitOrders(m.DataLayer(ctx), book)
}
