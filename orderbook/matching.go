package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/types"
)

// marketImpact matches amount of base asset for a taker on side against the
// resting orders of the opposite side. The taker pays with the asset the
// makers receive, receiver gets what the makers give.
//
// Maker amounts are aligned to the step lot size first; the unaligned rest
// is released to the maker and the order is treated as holding the aligned
// amount only.
func (m *Module) marketImpact(
	book types.OrderBook,
	dl store.DataLayer,
	side types.Side,
	taker, receiver types.AccountID,
	amount types.OrderVolume,
) (MarketChange, error) {
	var (
		change      = NewMarketChange(book.ID)
		makerSide   = side.Switched()
		remaining   = amount
		takerAmount = decimal.Zero
		makerAmount = decimal.Zero
	)

	// makers receive makerOut, the taker receives takerOut
	makerOut, takerOut := book.ID.Base, book.ID.Quote
	if side == types.Buy {
		makerOut, takerOut = book.ID.Quote, book.ID.Base
	}

	levels, err := store.GetAggregated(dl, makerSide, book.ID)
	if err != nil {
		return MarketChange{}, err
	}

	for _, level := range levels.Levels(makerSide) {
		ids, err := store.GetLimitOrdersByPrice(dl, makerSide, book.ID, level.Price)
		if err != nil {
			return MarketChange{}, err
		}
		if len(ids) == 0 {
			return MarketChange{}, fmt.Errorf("%w: no orders at %s", types.ErrNotEnoughLiquidityInOrderBook, level.Price)
		}

		for _, id := range ids {
			order, err := dl.GetLimitOrder(book.ID, id)
			if err != nil {
				return MarketChange{}, err
			}

			aligned := book.AlignAmount(order.Amount)
			if !aligned.Equal(order.Amount) {
				dust := order.LockedAmount().Value().Sub(order.WithAmount(aligned).LockedAmount().Value())
				change.Payment.Unlock(takerOut, order.Owner, dust)
			}

			executed := aligned
			if remaining.LessThan(aligned) {
				executed = remaining
			}
			takerAmount = takerAmount.Add(order.DealAmount(types.Taker, &executed).Value())
			makerPayment := order.DealAmount(types.Maker, &executed).Value()
			makerAmount = makerAmount.Add(makerPayment)
			change.Payment.Unlock(makerOut, order.Owner, makerPayment)
			remaining = remaining.Sub(executed)

			if rest := order.WithAmount(aligned.Sub(executed)); rest.IsEmpty() {
				change.ToFullExecute[id] = order
			} else {
				change.ToPartExecute[id] = PartExecution{
					Order:    rest,
					Executed: types.Base(executed),
				}
			}
			if remaining.IsZero() {
				break
			}
		}
		if remaining.IsZero() {
			break
		}
	}

	if remaining.IsPositive() {
		return MarketChange{}, fmt.Errorf("%w: %s of %s left unmatched",
			types.ErrNotEnoughLiquidityInOrderBook, remaining, amount)
	}

	change.Payment.Lock(makerOut, taker, makerAmount)
	change.Payment.Unlock(takerOut, receiver, takerAmount)

	input, output := types.Base(makerAmount), types.Quote(takerAmount)
	if side == types.Buy {
		input, output = types.Quote(makerAmount), types.Base(takerAmount)
	}
	marketOutput := output
	change.DealInput, change.DealOutput = &input, &output
	change.MarketOutput = &marketOutput
	return change, nil
}

// limitOrderImpact rests order on the book and locks what its owner gives
// when it executes.
func limitOrderImpact(book types.OrderBook, order types.LimitOrder) MarketChange {
	change := NewMarketChange(book.ID)
	locked := order.LockedAmount()
	change.Payment.Lock(locked.AssociatedAsset(book.ID), order.Owner, locked.Value())
	change.MarketInput = &locked
	change.ToPlace[order.ID] = order
	return change
}

// cancelImpact removes order from the book and releases what its owner
// still has locked.
func cancelImpact(book types.OrderBook, order types.LimitOrder, ignoreUnscheduleError bool) MarketChange {
	change := NewMarketChange(book.ID)
	locked := order.LockedAmount()
	change.Payment.Unlock(locked.AssociatedAsset(book.ID), order.Owner, locked.Value())
	change.MarketOutput = &locked
	change.ToCancel[order.ID] = order
	change.IgnoreUnscheduleError = ignoreUnscheduleError
	return change
}

// marketDepthToPrice sums the volume of levels, given in matching priority
// for orders resting on makerSide, that an order at price would cross, up
// to amount. It returns the crossed volume and what is left of amount.
func marketDepthToPrice(
	makerSide types.Side,
	price types.OrderPrice,
	amount types.OrderVolume,
	levels []types.PriceLevel,
) (market, left types.OrderVolume) {
	market, left = decimal.Zero, amount
	for _, level := range levels {
		if makerSide == types.Sell && level.Price.GreaterThan(price) {
			break
		}
		if makerSide == types.Buy && level.Price.LessThan(price) {
			break
		}
		if left.GreaterThanOrEqual(level.Volume) {
			market = market.Add(level.Volume)
			left = left.Sub(level.Volume)
		} else {
			market = market.Add(left)
			left = decimal.Zero
		}
		if left.IsZero() {
			break
		}
	}
	return market, left
}

// crosses reports whether order would meet the opposite side.
func crosses(dl store.DataLayer, book types.OrderBook, order types.LimitOrder) (bool, error) {
	if order.Side == types.Buy {
		ask, ok, err := store.BestAsk(dl, book.ID)
		return ok && order.Price.GreaterThanOrEqual(ask.Price), err
	}
	bid, ok, err := store.BestBid(dl, book.ID)
	return ok && order.Price.LessThanOrEqual(bid.Price), err
}

// crossSpread executes the crossing part of order as a market order and
// rests the remainder.
func (m *Module) crossSpread(book types.OrderBook, dl store.DataLayer, order types.LimitOrder) (MarketChange, error) {
	makerSide := order.Side.Switched()
	levels, err := store.GetAggregated(dl, makerSide, book.ID)
	if err != nil {
		return MarketChange{}, err
	}

	market, left := marketDepthToPrice(makerSide, order.Price, order.Amount, levels.Levels(makerSide))
	if aligned := book.AlignAmount(market); !aligned.Equal(market) {
		left = left.Add(market.Sub(aligned))
		market = aligned
	}
	if left.IsPositive() && left.LessThan(book.MinLotSize) {
		if levels.Total().Sub(market).GreaterThanOrEqual(left) {
			market = market.Add(left)
		}
		left = decimal.Zero
	}

	change := NewMarketChange(book.ID)
	if market.IsPositive() {
		change, err = m.marketImpact(book, dl, order.Side, order.Owner, order.Owner, market)
		if err != nil {
			return MarketChange{}, err
		}
	}
	if left.IsPositive() {
		if err := change.Merge(limitOrderImpact(book, order.WithAmount(left))); err != nil {
			return MarketChange{}, fmt.Errorf("%w: %v", types.ErrAmountCalculationFailed, err)
		}
	}
	return change, nil
}

// checkRestrictions enforces the capacity limits and the price distance of
// a new limit order.
func (m *Module) checkRestrictions(ctx Context, book types.OrderBook, dl store.DataLayer, order types.LimitOrder) error {
	userOrders, err := dl.GetUserLimitOrders(order.Owner, book.ID)
	if err != nil {
		return err
	}
	if len(userOrders) >= m.params.MaxOpenedLimitOrdersPerUser {
		return fmt.Errorf("%w: %s has %d orders", types.ErrUserHasMaxCountOfOpenedOrders, order.Owner, len(userOrders))
	}

	bucket, err := store.GetLimitOrdersByPrice(dl, order.Side, book.ID, order.Price)
	if err != nil {
		return err
	}
	if len(bucket) >= m.params.MaxLimitOrdersForPrice {
		return fmt.Errorf("%w: %s", types.ErrPriceReachedMaxCountOfLimitOrders, order.Price)
	}

	side, err := store.GetAggregated(dl, order.Side, book.ID)
	if err != nil {
		return err
	}
	if _, ok := side.Get(order.Price); !ok && len(side) >= m.params.MaxSidePriceCount {
		return fmt.Errorf("%w: %s side has %d prices", types.ErrOrderBookReachedMaxCountOfPricesForSide, order.Side, len(side))
	}

	agenda, err := store.GetAgenda(ctx.Store, order.ExpiresAt)
	if err != nil {
		return err
	}
	if len(agenda) >= m.params.MaxExpiringOrdersPerBlock {
		return fmt.Errorf("%w: block %d", types.ErrBlockScheduleFull, order.ExpiresAt)
	}

	// a new order may not be placed deeper than MaxPriceShift behind the
	// best price of its own side
	if best, ok := side.Best(order.Side); ok && isBehind(order.Side, order.Price, best.Price) {
		if order.Price.Sub(best.Price).Abs().GreaterThan(m.params.MaxPriceShift.Mul(best.Price)) {
			return fmt.Errorf("%w: %s is too far from the best %s price %s",
				types.ErrInvalidLimitOrderPrice, order.Price, order.Side, best.Price)
		}
	}
	return nil
}

// isBehind reports whether price is worse than best for an order on side:
// lower for bids, higher for asks.
func isBehind(side types.Side, price, best types.OrderPrice) bool {
	if side == types.Buy {
		return price.LessThan(best)
	}
	return price.GreaterThan(best)
}

// sumMarket adds up levels, given in matching priority, until limit is
// reached. The last level is taken partially, aligned to the step lot size.
// Without a limit the whole side is summed.
func sumMarket(book types.OrderBook, levels []types.PriceLevel, limit *types.OrderAmount) (base, quote types.OrderAmount, err error) {
	baseVolume, quoteVolume := decimal.Zero, decimal.Zero
	enough := false

	for _, level := range levels {
		levelQuote := types.Truncate(level.Price.Mul(level.Volume))

		if limit != nil {
			var delta types.OrderVolume
			reached := false
			switch {
			case limit.IsBase() && baseVolume.Add(level.Volume).GreaterThanOrEqual(limit.Value()):
				delta = book.AlignAmount(limit.Value().Sub(baseVolume))
				reached = true
			case limit.IsQuote() && quoteVolume.Add(levelQuote).GreaterThanOrEqual(limit.Value()):
				delta = book.AlignAmount(types.Div(limit.Value().Sub(quoteVolume), level.Price))
				reached = true
			}
			if reached {
				baseVolume = baseVolume.Add(delta)
				quoteVolume = quoteVolume.Add(types.Truncate(level.Price.Mul(delta)))
				enough = true
				break
			}
		}

		baseVolume = baseVolume.Add(level.Volume)
		quoteVolume = quoteVolume.Add(levelQuote)
	}

	if limit != nil && !enough {
		return types.OrderAmount{}, types.OrderAmount{}, fmt.Errorf("%w: can't reach %s",
			types.ErrNotEnoughLiquidityInOrderBook, limit)
	}
	return types.Base(baseVolume), types.Quote(quoteVolume), nil
}

// sideOf returns the side of a taker giving input for output on book.
func sideOf(book types.OrderBook, input, output types.AssetID) (types.Side, error) {
	switch {
	case book.ID.Base == output && book.ID.Quote == input:
		return types.Buy, nil
	case book.ID.Base == input && book.ID.Quote == output:
		return types.Sell, nil
	default:
		return 0, fmt.Errorf("%w: %s -> %s on %s", types.ErrInvalidAsset, input, output, book.ID)
	}
}

// calculateDeal prices a swap of input for output against the current
// book without changing it.
func calculateDeal(
	book types.OrderBook,
	dl store.DataLayer,
	input, output types.AssetID,
	variant types.SwapVariant,
	desired types.OrderVolume,
) (types.DealInfo, error) {
	side, err := sideOf(book, input, output)
	if err != nil {
		return types.DealInfo{}, err
	}
	makerSide := side.Switched()
	levels, err := store.GetAggregated(dl, makerSide, book.ID)
	if err != nil {
		return types.DealInfo{}, err
	}

	// the limit is denominated in the asset fixed by the request
	var limit types.OrderAmount
	switch {
	case variant == types.WithDesiredInput && side == types.Buy,
		variant == types.WithDesiredOutput && side == types.Sell:
		limit = types.Quote(desired)
	default:
		limit = types.Base(desired)
	}

	base, quote, err := sumMarket(book, levels.Levels(makerSide), &limit)
	if err != nil {
		return types.DealInfo{}, err
	}
	if !base.Value().IsPositive() || !quote.Value().IsPositive() {
		return types.DealInfo{}, fmt.Errorf("%w: %s is too small to trade", types.ErrInvalidOrderAmount, desired)
	}

	deal := types.DealInfo{
		InputAsset:   input,
		OutputAsset:  output,
		AveragePrice: types.Div(quote.Value(), base.Value()),
		Side:         side,
	}
	if side == types.Buy {
		deal.InputAmount, deal.OutputAmount = quote, base
	} else {
		deal.InputAmount, deal.OutputAmount = base, quote
	}
	if !deal.IsValid() {
		return types.DealInfo{}, fmt.Errorf("%w: %s %s for %s %s",
			types.ErrPriceCalculationFailed, deal.InputAmount.Value(), input, deal.OutputAmount.Value(), output)
	}
	return deal, nil
}
