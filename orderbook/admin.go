package orderbook

import (
	"fmt"

	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/types"
)

// CreateOrderBook opens a market with the default attributes for its base
// asset. Books of indivisible assets may only be opened by a holder of the
// asset or by an authorized account.
func (m *Module) CreateOrderBook(ctx Context, creator types.AccountID, id types.OrderBookID) (types.OrderBook, error) {
	var book types.OrderBook
	err := atomically(ctx, func(ctx Context) error {
		if err := id.ValidateBasic(); err != nil {
			return err
		}
		dexBase, ok := m.dexes.BaseAsset(id.DEXID)
		if !ok {
			return fmt.Errorf("%w: unknown dex %d", types.ErrInvalidOrderBookID, id.DEXID)
		}
		if id.Quote != dexBase {
			return fmt.Errorf("%w: %s, dex %d trades against %s", types.ErrNotAllowedQuoteAsset, id.Quote, id.DEXID, dexBase)
		}
		divisible, ok := m.assets.AssetInfo(id.Base)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrAssetNotExists, id.Base)
		}
		if _, ok := m.assets.AssetInfo(id.Quote); !ok {
			return fmt.Errorf("%w: %s", types.ErrAssetNotExists, id.Quote)
		}
		_, exists, err := store.GetOrderBook(ctx.Store, id)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", types.ErrOrderBookAlreadyExists, id)
		}

		if divisible {
			book = types.DefaultOrderBook(id)
		} else {
			if m.authority == nil || !m.authority.IsAuthorized(creator) {
				held, err := m.bank.FreeBalance(ctx.Store, creator, id.Base)
				if err != nil {
					return err
				}
				if !held.IsPositive() {
					return fmt.Errorf("%w: %s holds no %s", types.ErrUserHasNoNFT, creator, id.Base)
				}
			}
			book = types.DefaultNFTOrderBook(id)
		}
		if err := store.SetOrderBook(ctx.Store, book); err != nil {
			return err
		}
		ctx.emit(types.NewEvent(types.EventOrderBookCreated, id, "creator", string(creator)))
		return nil
	})
	if err != nil {
		return types.OrderBook{}, err
	}
	m.metrics.OrderBooks.Add(1)
	m.logger.Info("created order book", "book", id, "creator", creator)
	return book, nil
}

// UpdateOrderBook changes the trading attributes of a book. If orders rest
// on the book it is locked until ServiceAlignment has shrunk every order
// whose amount is not a multiple of the new step lot size to the closest
// multiple below, or canceled it if nothing is left.
func (m *Module) UpdateOrderBook(
	ctx Context,
	caller types.AccountID,
	id types.OrderBookID,
	tickSize types.OrderPrice,
	stepLotSize, minLotSize, maxLotSize types.OrderVolume,
) error {
	return atomically(ctx, func(ctx Context) error {
		if err := m.ensureAuthorized(caller); err != nil {
			return err
		}
		book, err := store.MustGetOrderBook(ctx.Store, id)
		if err != nil {
			return err
		}
		if err := ensureReady(book); err != nil {
			return err
		}
		divisible, ok := m.assets.AssetInfo(id.Base)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrAssetNotExists, id.Base)
		}

		book.TickSize = tickSize
		book.StepLotSize = stepLotSize
		book.MinLotSize = minLotSize
		book.MaxLotSize = maxLotSize
		if err := book.ValidateAttributes(m.params, divisible); err != nil {
			return err
		}

		resting, err := hasRestingOrders(m.DataLayer(ctx), book)
		if err != nil {
			return err
		}
		if resting {
			book.TechStatus = types.TechStatusUpdating
			if err := scheduleAlignment(ctx, id); err != nil {
				return err
			}
		}
		if err := store.SetOrderBook(ctx.Store, book); err != nil {
			return err
		}

		ctx.emit(types.NewEvent(types.EventOrderBookUpdated, id,
			"tick_size", tickSize,
			"step_lot_size", stepLotSize,
			"min_lot_size", minLotSize,
			"max_lot_size", maxLotSize,
		))
		return nil
	})
}

// alignOrder shrinks order to a multiple of the step lot size of book and
// releases the difference to the owner.
func (m *Module) alignOrder(ctx Context, book types.OrderBook, dl store.DataLayer, order types.LimitOrder) error {
	aligned := book.AlignAmount(order.Amount)
	if aligned.IsZero() {
		return m.cancelOrders(ctx, book, dl, []types.LimitOrder{order}, types.CancelReasonAligned)
	}

	shrunk := order.WithAmount(aligned)
	dust := order.LockedAmount().Value().Sub(shrunk.LockedAmount().Value())
	change := NewMarketChange(book.ID)
	change.Payment.Unlock(order.LockedAmount().AssociatedAsset(book.ID), order.Owner, dust)
	change.ToForceUpdate[order.ID] = shrunk
	return m.applyMarketChange(ctx, book, dl, change)
}

// ChangeOrderBookStatus moves a book to status.
func (m *Module) ChangeOrderBookStatus(ctx Context, caller types.AccountID, id types.OrderBookID, status types.OrderBookStatus) error {
	return atomically(ctx, func(ctx Context) error {
		if err := m.ensureAuthorized(caller); err != nil {
			return err
		}
		if _, err := status.MarshalText(); err != nil {
			return err
		}
		book, err := store.MustGetOrderBook(ctx.Store, id)
		if err != nil {
			return err
		}
		book.Status = status
		if err := store.SetOrderBook(ctx.Store, book); err != nil {
			return err
		}
		ctx.emit(types.NewEvent(types.EventOrderBookStatusChanged, id, "status", status))
		return nil
	})
}

// DeleteOrderBook cancels every resting order of the book, removes it and
// returns the number of canceled orders.
func (m *Module) DeleteOrderBook(ctx Context, caller types.AccountID, id types.OrderBookID) (int, error) {
	var count int
	err := atomically(ctx, func(ctx Context) error {
		if err := m.ensureAuthorized(caller); err != nil {
			return err
		}
		book, err := store.MustGetOrderBook(ctx.Store, id)
		if err != nil {
			return err
		}
		err = m.cached(ctx, func(dl store.DataLayer) error {
			orders, err := limitOrders(dl, book)
			if err != nil {
				return err
			}
			count = len(orders)
			return m.cancelOrders(ctx, book, dl, orders, types.CancelReasonOrderBookDeleted)
		})
		if err != nil {
			return err
		}
		if err := store.DeleteOrderBook(ctx.Store, id); err != nil {
			return err
		}
		if err := unscheduleAlignment(ctx, id); err != nil {
			return err
		}
		ctx.emit(types.NewEvent(types.EventOrderBookDeleted, id, "count", int64(count)))
		return nil
	})
	if err != nil {
		return 0, err
	}
	m.metrics.OrderBooks.Add(-1)
	m.logger.Info("deleted order book", "book", id, "canceled", count)
	return count, nil
}
