package orderbook

import (
	"fmt"

	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/types"
)

// schedule adds the order to the expiration agenda of block.
func (m *Module) schedule(ctx Context, block int64, id types.OrderBookID, orderID types.OrderID) error {
	if block <= ctx.Height {
		return fmt.Errorf("%w: %d, current block is %d", types.ErrExpirationsInThePast, block, ctx.Height)
	}
	agenda, err := store.GetAgenda(ctx.Store, block)
	if err != nil {
		return err
	}
	if len(agenda) >= m.params.MaxExpiringOrdersPerBlock {
		return fmt.Errorf("%w: block %d", types.ErrBlockScheduleFull, block)
	}
	return store.SetAgenda(ctx.Store, block, append(agenda, store.Expiration{OrderBookID: id, OrderID: orderID}))
}

// unschedule removes the order from the expiration agenda of block.
func (m *Module) unschedule(ctx Context, block int64, id types.OrderBookID, orderID types.OrderID) error {
	agenda, err := store.GetAgenda(ctx.Store, block)
	if err != nil {
		return err
	}
	for i, e := range agenda {
		if e.OrderBookID == id && e.OrderID == orderID {
			rest := make([]store.Expiration, 0, len(agenda)-1)
			rest = append(rest, agenda[:i]...)
			rest = append(rest, agenda[i+1:]...)
			return store.SetAgenda(ctx.Store, block, rest)
		}
	}
	return fmt.Errorf("%w: order %d of %s at block %d", types.ErrExpirationNotFound, orderID, id, block)
}

// ServiceExpirations expires the orders scheduled up to the current block
// as far as meter allows. Blocks that could not be serviced completely are
// resumed first on the next call.
func (m *Module) ServiceExpirations(ctx Context, meter *WeightMeter) error {
	start := meter.Consumed()
	defer func() { m.metrics.ServiceWeight.Observe(float64(meter.Consumed() - start)) }()

	current := ctx.Height
	incompleteSince := current + 1
	when, ok, err := store.GetIncompleteExpirationsSince(ctx.Store)
	if err != nil {
		return err
	}
	if !meter.CheckAccrue(ServiceBaseWeight) {
		if !ok {
			return store.SetIncompleteExpirationsSince(ctx.Store, current)
		}
		return nil
	}
	if ok {
		if err := store.ClearIncompleteExpirationsSince(ctx.Store); err != nil {
			return err
		}
	} else {
		when = current
	}

	for ; when <= current && meter.CanAccrue(ServiceBlockBaseWeight); when++ {
		complete, err := m.serviceBlock(ctx, when, meter)
		if err != nil {
			return err
		}
		if !complete && when < incompleteSince {
			incompleteSince = when
		}
	}
	if when < incompleteSince {
		incompleteSince = when
	}
	if incompleteSince <= current {
		m.logger.Debug("expirations left for later blocks", "since", incompleteSince, "current", current)
		return store.SetIncompleteExpirationsSince(ctx.Store, incompleteSince)
	}
	return nil
}

// serviceBlock expires the agenda of block, latest entries first, and
// reports whether the agenda is done.
func (m *Module) serviceBlock(ctx Context, block int64, meter *WeightMeter) (bool, error) {
	if !meter.CheckAccrue(ServiceBlockBaseWeight) {
		return false, nil
	}
	agenda, err := store.GetAgenda(ctx.Store, block)
	if err != nil {
		return false, err
	}
	if len(agenda) == 0 {
		return true, nil
	}
	// the agenda is taken so expired orders are not unscheduled again
	if err := store.SetAgenda(ctx.Store, block, nil); err != nil {
		return false, err
	}

	n := meter.CheckAccrueN(ServiceSingleExpirationWeight, len(agenda))
	for i := 0; i < n; i++ {
		last := agenda[len(agenda)-1]
		agenda = agenda[:len(agenda)-1]
		m.serviceSingleExpiration(ctx, last)
	}

	if len(agenda) > 0 {
		return false, store.SetAgenda(ctx.Store, block, agenda)
	}
	return true, nil
}

// serviceSingleExpiration expires one order. Failures are reported with an
// ExpirationFailure event and never abort the service.
func (m *Module) serviceSingleExpiration(ctx Context, e store.Expiration) {
	err := atomically(ctx, func(ctx Context) error {
		book, err := store.MustGetOrderBook(ctx.Store, e.OrderBookID)
		if err != nil {
			return err
		}
		dl := m.DataLayer(ctx)
		order, err := dl.GetLimitOrder(e.OrderBookID, e.OrderID)
		if err != nil {
			return err
		}
		if err := m.applyMarketChange(ctx, book, dl, cancelImpact(book, order, true)); err != nil {
			return err
		}
		ctx.emit(types.NewEvent(types.EventLimitOrderExpired, e.OrderBookID,
			"order_id", e.OrderID,
			"owner", string(order.Owner),
		))
		return nil
	})
	if err != nil {
		m.logger.Error("failed to expire limit order", "book", e.OrderBookID, "order", e.OrderID, "err", err)
		m.metrics.ExpirationFailures.Add(1)
		ctx.emit(types.NewEvent(types.EventExpirationFailure, e.OrderBookID,
			"order_id", e.OrderID,
			"error", err.Error(),
		))
		return
	}
	m.metrics.ExpiredOrders.Add(1)
}
