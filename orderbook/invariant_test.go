package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/types"
)

var (
	traders = []types.AccountID{"alice", "bob", "carol"}
	assets  = []types.AssetID{"XOR", "VAL"}
)

// checkInvariants verifies that funds are conserved and that the escrow of
// the book holds exactly what its resting orders have locked.
func checkInvariants(t *rapid.T, env *testEnv) {
	for _, asset := range assets {
		total := env.escrow(asset)
		for _, account := range traders {
			total = total.Add(env.balance(account, asset))
		}
		want := initialBalance.Mul(decimal.NewFromInt(int64(len(traders))))
		require.True(t, total.Equal(want), "%s is not conserved: %s != %s", asset, total, want)
	}

	orders, err := env.module.LimitOrders(env.ctx(), bookID)
	require.NoError(t, err)
	locked := map[types.AssetID]decimal.Decimal{"XOR": decimal.Zero, "VAL": decimal.Zero}
	for _, order := range orders {
		require.True(t, order.Amount.IsPositive(), "empty order %s rests", order)
		amount := order.LockedAmount()
		asset := amount.AssociatedAsset(bookID)
		locked[asset] = locked[asset].Add(amount.Value())
	}
	for asset, want := range locked {
		require.True(t, env.escrow(asset).Equal(want), "escrow of %s is %s, orders lock %s", asset, env.escrow(asset), want)
	}

	dl := env.module.DataLayer(env.ctx())
	bid, hasBid, err := store.BestBid(dl, bookID)
	require.NoError(t, err)
	ask, hasAsk, err := store.BestAsk(dl, bookID)
	require.NoError(t, err)
	if hasBid && hasAsk {
		require.True(t, bid.Price.LessThan(ask.Price), "book is crossed: bid %s, ask %s", bid.Price, ask.Price)
	}
}

func TestEngineInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		env := newTestEnv(t)
		account := rapid.SampledFrom(traders)
		side := rapid.SampledFrom([]types.Side{types.Buy, types.Sell})

		steps := rapid.IntRange(1, 30).Draw(t, "steps").(int)
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 9).Draw(t, "op").(int) {
			case 0, 1, 2, 3, 4:
				price := decimal.NewFromInt(int64(rapid.IntRange(8, 12).Draw(t, "price").(int)))
				amount := decimal.NewFromInt(int64(rapid.IntRange(1, 20).Draw(t, "amount").(int)))
				_, _ = env.module.PlaceLimitOrder(env.ctx(), account.Draw(t, "owner").(types.AccountID),
					bookID, price, amount, side.Draw(t, "side").(types.Side), 60000)
			case 5, 6:
				amount := decimal.NewFromInt(int64(rapid.IntRange(1, 20).Draw(t, "amount").(int)))
				_, _, _ = env.module.ExecuteMarketOrder(env.ctx(), account.Draw(t, "owner").(types.AccountID),
					bookID, side.Draw(t, "side").(types.Side), amount)
			case 7:
				orderID := types.OrderID(rapid.IntRange(1, 30).Draw(t, "order").(int))
				_ = env.module.CancelLimitOrder(env.ctx(), account.Draw(t, "owner").(types.AccountID), bookID, orderID)
			case 8:
				amount := decimal.NewFromInt(int64(rapid.IntRange(1, 200).Draw(t, "amount").(int)))
				_, _ = env.module.Exchange(env.ctx(), "alice", account.Draw(t, "receiver").(types.AccountID),
					0, "XOR", "VAL", types.DesiredInput(amount, decimal.Zero))
			default:
				blocks := rapid.IntRange(1, 12).Draw(t, "blocks").(int)
				for b := 0; b < blocks; b++ {
					env.height++
					require.NoError(t, env.module.ServiceExpirations(env.ctx(), NewWeightMeter(1_000_000)))
				}
			}
			checkInvariants(t, env)
		}
	})
}
