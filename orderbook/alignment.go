package orderbook

import (
	"fmt"
	"sort"

	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/types"
)

// ensureReady rejects placement and trading on a book being aligned.
func ensureReady(book types.OrderBook) error {
	if book.IsLocked() {
		return fmt.Errorf("%w: %s is %s", types.ErrOrderBookIsLocked, book.ID, book.TechStatus)
	}
	return nil
}

func hasRestingOrders(dl store.DataLayer, book types.OrderBook) (bool, error) {
	for _, side := range []types.Side{types.Buy, types.Sell} {
		levels, err := store.GetAggregated(dl, side, book.ID)
		if err != nil {
			return false, err
		}
		if len(levels) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// restingOrderIDs returns the ids of every order resting on the book in
// ascending order. Only the price indexes are read.
func restingOrderIDs(dl store.DataLayer, book types.OrderBook) ([]types.OrderID, error) {
	var ids []types.OrderID
	for _, side := range []types.Side{types.Buy, types.Sell} {
		levels, err := store.GetAggregated(dl, side, book.ID)
		if err != nil {
			return nil, err
		}
		for _, level := range levels {
			bucket, err := store.GetLimitOrdersByPrice(dl, side, book.ID, level.Price)
			if err != nil {
				return nil, err
			}
			ids = append(ids, bucket...)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func scheduleAlignment(ctx Context, id types.OrderBookID) error {
	cursors, err := store.GetAlignmentCursors(ctx.Store)
	if err != nil {
		return err
	}
	for _, c := range cursors {
		if c.OrderBookID == id {
			return nil
		}
	}
	return store.SetAlignmentCursors(ctx.Store, append(cursors, store.AlignmentCursor{OrderBookID: id}))
}

func unscheduleAlignment(ctx Context, id types.OrderBookID) error {
	cursors, err := store.GetAlignmentCursors(ctx.Store)
	if err != nil {
		return err
	}
	rest := make([]store.AlignmentCursor, 0, len(cursors))
	for _, c := range cursors {
		if c.OrderBookID != id {
			rest = append(rest, c)
		}
	}
	if len(rest) == len(cursors) {
		return nil
	}
	return store.SetAlignmentCursors(ctx.Store, rest)
}

// ServiceAlignment aligns the resting orders of books locked by
// UpdateOrderBook as far as meter allows, visiting at most SoftMinMaxRatio
// orders of each book per call. Orders are visited by ascending id and the
// last visited id is kept, so the next call resumes where this one stopped.
// A book is unlocked once no order above its cursor is left.
func (m *Module) ServiceAlignment(ctx Context, meter *WeightMeter) error {
	if !meter.CanAccrue(AlignSingleOrderWeight) {
		return nil
	}
	cursors, err := store.GetAlignmentCursors(ctx.Store)
	if err != nil {
		return err
	}
	if len(cursors) == 0 {
		return nil
	}

	pending := make([]store.AlignmentCursor, 0, len(cursors))
	for i, cursor := range cursors {
		if !meter.CanAccrue(AlignSingleOrderWeight) {
			pending = append(pending, cursors[i:]...)
			break
		}
		next, done, err := m.alignBatch(ctx, cursor, meter)
		if err != nil {
			return err
		}
		if !done {
			pending = append(pending, next)
		}
	}
	return store.SetAlignmentCursors(ctx.Store, pending)
}

// alignBatch visits the next orders of one book and reports whether the
// book is done.
func (m *Module) alignBatch(ctx Context, cursor store.AlignmentCursor, meter *WeightMeter) (store.AlignmentCursor, bool, error) {
	book, ok, err := store.GetOrderBook(ctx.Store, cursor.OrderBookID)
	if err != nil {
		return cursor, false, err
	}
	if !ok {
		m.logger.Error("order book not found during alignment", "book", cursor.OrderBookID)
		ctx.emit(types.NewEvent(types.EventAlignmentFailure, cursor.OrderBookID,
			"error", types.ErrUnknownOrderBook.Error(),
		))
		return cursor, true, nil
	}

	ids, err := restingOrderIDs(m.DataLayer(ctx), book)
	if err != nil {
		return cursor, false, err
	}
	ids = ids[sort.Search(len(ids), func(i int) bool { return ids[i] > cursor.Last }):]

	batch := ids
	if limit := int(m.params.SoftMinMaxRatio); len(batch) > limit {
		batch = batch[:limit]
	}
	batch = batch[:meter.CheckAccrueN(AlignSingleOrderWeight, len(batch))]
	for _, orderID := range batch {
		m.alignSingleOrder(ctx, book, orderID)
		cursor.Last = orderID
	}
	if len(batch) < len(ids) {
		m.logger.Debug("alignment left for later blocks", "book", book.ID, "cursor", cursor.Last, "left", len(ids)-len(batch))
		return cursor, false, nil
	}

	book, err = store.MustGetOrderBook(ctx.Store, book.ID)
	if err != nil {
		return cursor, false, err
	}
	book.TechStatus = types.TechStatusReady
	if err := store.SetOrderBook(ctx.Store, book); err != nil {
		return cursor, false, err
	}
	m.logger.Info("aligned order book", "book", book.ID)
	return cursor, true, nil
}

// alignSingleOrder aligns one order. Failures are reported with an
// AlignmentFailure event and never abort the service.
func (m *Module) alignSingleOrder(ctx Context, book types.OrderBook, orderID types.OrderID) {
	var aligned bool
	err := atomically(ctx, func(ctx Context) error {
		dl := m.DataLayer(ctx)
		order, err := dl.GetLimitOrder(book.ID, orderID)
		if err != nil {
			return err
		}
		if types.IsMultipleOf(order.Amount, book.StepLotSize) {
			return nil
		}
		aligned = true
		return m.alignOrder(ctx, book, dl, order)
	})
	if err != nil {
		m.logger.Error("failed to align limit order", "book", book.ID, "order", orderID, "err", err)
		m.metrics.AlignmentFailures.Add(1)
		ctx.emit(types.NewEvent(types.EventAlignmentFailure, book.ID,
			"order_id", orderID,
			"error", err.Error(),
		))
		return
	}
	if aligned {
		m.metrics.AlignedOrders.Add(1)
	}
}
