package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"
	"pgregory.net/rapid"

	"github.com/tendermint/orderbook/types"
)

var (
	testOwners = []string{"alice", "bob", "carol"}
	testPrices = []string{"9", "9.5", "10", "10.5", "11"}
)

func dumpDB(t require.TestingT, db dbm.DB) map[string]string {
	it, err := db.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Close()
	out := make(map[string]string)
	for ; it.Valid(); it.Next() {
		out[string(it.Key())] = string(it.Value())
	}
	require.NoError(t, it.Error())
	return out
}

// checkIndexConsistency verifies that every aggregated level equals the sum
// of the orders resting at that price.
func checkIndexConsistency(t require.TestingT, dl DataLayer, ids []types.OrderID) {
	sums := map[types.Side]map[string]decimal.Decimal{
		types.Buy:  {},
		types.Sell: {},
	}
	for _, id := range ids {
		o, err := dl.GetLimitOrder(testBookID, id)
		if err != nil {
			continue
		}
		key := o.Price.String()
		sums[o.Side][key] = sums[o.Side][key].Add(o.Amount)
	}
	for side, levels := range sums {
		agg, err := GetAggregated(dl, side, testBookID)
		require.NoError(t, err)
		require.Len(t, agg, len(levels))
		for _, l := range agg {
			require.True(t, l.Volume.Equal(levels[l.Price.String()]), "%s %s: %s", side, l.Price, l.Volume)
		}
	}
}

func TestCacheAndStorageEquivalence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		storageDB, cacheDB := dbm.NewMemDB(), dbm.NewMemDB()
		storage := NewStorageLayer(storageDB, testLimits())
		cache := NewCacheLayer(cacheDB, testLimits())

		var (
			nextID types.OrderID
			ids    []types.OrderID
		)
		steps := rapid.IntRange(1, 60).Draw(t, "steps").(int)
		for i := 0; i < steps; i++ {
			var errS, errC error
			switch op := rapid.IntRange(0, 3).Draw(t, "op").(int); {
			case op <= 1 || len(ids) == 0:
				nextID++
				side := types.Buy
				if rapid.Bool().Draw(t, "sell").(bool) {
					side = types.Sell
				}
				order := testOrder(nextID,
					types.AccountID(rapid.SampledFrom(testOwners).Draw(t, "owner").(string)),
					side,
					rapid.SampledFrom(testPrices).Draw(t, "price").(string),
					decimal.NewFromInt(int64(rapid.IntRange(1, 50).Draw(t, "amount").(int))).String(),
				)
				errS = storage.InsertLimitOrder(testBookID, order)
				errC = cache.InsertLimitOrder(testBookID, order)
				if errS == nil {
					ids = append(ids, order.ID)
				}
			case op == 2:
				id := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "delete").(int)]
				errS = storage.DeleteLimitOrder(testBookID, id)
				errC = cache.DeleteLimitOrder(testBookID, id)
			default:
				id := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "update").(int)]
				amount := decimal.NewFromInt(int64(rapid.IntRange(0, 50).Draw(t, "new amount").(int)))
				errS = storage.UpdateLimitOrderAmount(testBookID, id, amount)
				errC = cache.UpdateLimitOrderAmount(testBookID, id, amount)
			}
			require.Equal(t, errS == nil, errC == nil, "storage: %v, cache: %v", errS, errC)

			if rapid.Bool().Draw(t, "commit").(bool) {
				require.NoError(t, cache.Commit())
			}
			checkIndexConsistency(t, storage, ids)
			checkIndexConsistency(t, cache, ids)
		}

		require.NoError(t, cache.Commit())
		require.Equal(t, dumpDB(t, storageDB), dumpDB(t, cacheDB))
	})
}
