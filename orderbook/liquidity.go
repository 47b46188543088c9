package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/types"
)

// LiquiditySource is implemented by anything swaps can be routed through.
type LiquiditySource interface {
	CanExchange(ctx Context, dex types.DEXID, input, output types.AssetID) bool
	Quote(ctx Context, dex types.DEXID, input, output types.AssetID, amount types.SwapAmount, deduceFee bool) (types.SwapOutcome, error)
	Exchange(
		ctx Context,
		sender, receiver types.AccountID,
		dex types.DEXID,
		input, output types.AssetID,
		amount types.SwapAmount,
	) (types.SwapOutcome, error)
	CheckRewards(ctx Context, dex types.DEXID, input, output types.AssetID, in, out types.OrderVolume) ([]Reward, error)
}

var _ LiquiditySource = (*Module)(nil)

// Reward is an extra payout granted for routing a swap.
type Reward struct {
	Asset  types.AssetID     `json:"asset"`
	Amount types.OrderVolume `json:"amount"`
}

// resolveBook finds the book trading input for output on dex.
func (m *Module) resolveBook(ctx Context, dex types.DEXID, input, output types.AssetID) (types.OrderBook, error) {
	dexBase, ok := m.dexes.BaseAsset(dex)
	if !ok {
		return types.OrderBook{}, fmt.Errorf("%w: unknown dex %d", types.ErrInvalidOrderBookID, dex)
	}
	var id types.OrderBookID
	switch {
	case input == dexBase && output != dexBase:
		id = types.OrderBookID{DEXID: dex, Base: output, Quote: input}
	case output == dexBase && input != dexBase:
		id = types.OrderBookID{DEXID: dex, Base: input, Quote: output}
	default:
		return types.OrderBook{}, fmt.Errorf("%w: %s -> %s on dex %d", types.ErrInvalidAsset, input, output, dex)
	}
	return store.MustGetOrderBook(ctx.Store, id)
}

// CanExchange reports whether a trading book exists for the pair.
func (m *Module) CanExchange(ctx Context, dex types.DEXID, input, output types.AssetID) bool {
	book, err := m.resolveBook(ctx, dex, input, output)
	return err == nil && book.Status.AllowsTrading() && !book.IsLocked()
}

// Quote prices a swap against the current book. The book charges no fee,
// so deduceFee has no effect.
func (m *Module) Quote(
	ctx Context,
	dex types.DEXID,
	input, output types.AssetID,
	amount types.SwapAmount,
	deduceFee bool,
) (types.SwapOutcome, error) {
	_, deal, err := m.quote(ctx, dex, input, output, amount)
	if err != nil {
		return types.SwapOutcome{}, err
	}
	return outcome(amount, deal.InputAmount, deal.OutputAmount), nil
}

func (m *Module) quote(ctx Context, dex types.DEXID, input, output types.AssetID, amount types.SwapAmount) (types.OrderBook, types.DealInfo, error) {
	if err := amount.ValidateBasic(); err != nil {
		return types.OrderBook{}, types.DealInfo{}, fmt.Errorf("%w: %v", types.ErrInvalidOrderAmount, err)
	}
	book, err := m.resolveBook(ctx, dex, input, output)
	if err != nil {
		return types.OrderBook{}, types.DealInfo{}, err
	}
	if !book.Status.AllowsTrading() {
		return types.OrderBook{}, types.DealInfo{}, fmt.Errorf("%w: %s is %s", types.ErrTradingIsForbidden, book.ID, book.Status)
	}
	if err := ensureReady(book); err != nil {
		return types.OrderBook{}, types.DealInfo{}, err
	}
	deal, err := calculateDeal(book, m.DataLayer(ctx), input, output, amount.Variant, amount.Desired)
	if err != nil {
		return types.OrderBook{}, types.DealInfo{}, err
	}
	if err := checkSlippage(amount, deal.InputAmount, deal.OutputAmount); err != nil {
		return types.OrderBook{}, types.DealInfo{}, err
	}
	return book, deal, nil
}

// Exchange swaps input of sender for output delivered to receiver by
// executing a market order on the book.
func (m *Module) Exchange(
	ctx Context,
	sender, receiver types.AccountID,
	dex types.DEXID,
	input, output types.AssetID,
	amount types.SwapAmount,
) (types.SwapOutcome, error) {
	var result types.SwapOutcome
	err := atomically(ctx, func(ctx Context) error {
		book, deal, err := m.quote(ctx, dex, input, output, amount)
		if err != nil {
			return err
		}
		in, out, err := m.executeMarketOrder(ctx, book, sender, receiver, deal.Side, deal.BaseAmount())
		if err != nil {
			return err
		}
		if err := checkSlippage(amount, in, out); err != nil {
			return err
		}
		result = outcome(amount, in, out)
		return nil
	})
	return result, err
}

// CheckRewards returns no rewards: trading on the book is not incentivized.
func (m *Module) CheckRewards(ctx Context, dex types.DEXID, input, output types.AssetID, in, out types.OrderVolume) ([]Reward, error) {
	return nil, nil
}

func checkSlippage(amount types.SwapAmount, in, out types.OrderAmount) error {
	switch amount.Variant {
	case types.WithDesiredInput:
		if out.Value().LessThan(amount.Limit) {
			return fmt.Errorf("%w: out %s < min %s", types.ErrSlippageLimitExceeded, out.Value(), amount.Limit)
		}
	case types.WithDesiredOutput:
		if !amount.Limit.IsZero() && in.Value().GreaterThan(amount.Limit) {
			return fmt.Errorf("%w: in %s > max %s", types.ErrSlippageLimitExceeded, in.Value(), amount.Limit)
		}
	}
	return nil
}

// outcome reports the side of the swap that was not fixed by the request.
func outcome(amount types.SwapAmount, in, out types.OrderAmount) types.SwapOutcome {
	if amount.Variant == types.WithDesiredInput {
		return types.SwapOutcome{Amount: out.Value(), Fee: decimal.Zero}
	}
	return types.SwapOutcome{Amount: in.Value(), Fee: decimal.Zero}
}
