package orderbook

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/orderbook/ledger"
	"github.com/tendermint/orderbook/libs/log"
	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

var bookID = types.OrderBookID{DEXID: 0, Base: "VAL", Quote: "XOR"}

var initialBalance = decimal.NewFromInt(1_000_000)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type testEnv struct {
	t      require.TestingT
	db     dbm.DB
	ledger ledger.Ledger
	module *Module
	events *EventManager
	height int64
}

func newTestEnv(t require.TestingT) *testEnv {
	return newTestEnvWithParams(t, types.TestParams())
}

func newTestEnvWithParams(t require.TestingT, params types.Params, options ...func(env *testEnv) Bank) *testEnv {
	registry, err := ledger.NewRegistry(
		[]ledger.Asset{
			{ID: "XOR", Divisible: true},
			{ID: "VAL", Divisible: true},
			{ID: "PSWAP", Divisible: true},
			{ID: "NFT", Divisible: false},
		},
		[]ledger.DEX{{ID: 0, BaseAsset: "XOR"}},
	)
	require.NoError(t, err)

	env := &testEnv{
		t:      t,
		db:     dbm.NewMemDB(),
		ledger: ledger.New(),
		height: 1,
	}
	var bank Bank = env.ledger
	for _, option := range options {
		bank = option(env)
	}
	env.module = NewModule(params, bank, registry, registry,
		AuthorityFunc(func(a types.AccountID) bool { return a == "root" }),
		WithLogger(log.TestingLogger()),
	)

	for _, account := range []types.AccountID{"alice", "bob", "carol"} {
		env.mint(account, "XOR", initialBalance)
		env.mint(account, "VAL", initialBalance)
	}
	_, err = env.module.CreateOrderBook(env.ctx(), "root", bookID)
	require.NoError(t, err)
	return env
}

// ctx returns a context at the current height with a fresh event manager.
func (env *testEnv) ctx() Context {
	env.events = NewEventManager()
	return NewContext(env.db, env.height, env.height*6000, env.events)
}

func (env *testEnv) mint(account types.AccountID, asset types.AssetID, amount decimal.Decimal) {
	require.NoError(env.t, env.ledger.Mint(env.db, account, asset, amount))
}

func (env *testEnv) balance(account types.AccountID, asset types.AssetID) decimal.Decimal {
	v, err := env.ledger.FreeBalance(env.db, account, asset)
	require.NoError(env.t, err)
	return v
}

func (env *testEnv) escrow(asset types.AssetID) decimal.Decimal {
	v, err := env.ledger.Escrow(env.db, bookID, asset)
	require.NoError(env.t, err)
	return v
}

func (env *testEnv) place(owner types.AccountID, side types.Side, price, amount string) (types.OrderID, error) {
	return env.module.PlaceLimitOrder(env.ctx(), owner, bookID, dec(price), dec(amount), side, 60000)
}

func (env *testEnv) mustPlace(owner types.AccountID, side types.Side, price, amount string) types.OrderID {
	id, err := env.place(owner, side, price, amount)
	require.NoError(env.t, err)
	return id
}

func (env *testEnv) order(id types.OrderID) (types.LimitOrder, error) {
	return env.module.DataLayer(env.ctx()).GetLimitOrder(bookID, id)
}

func (env *testEnv) book() types.OrderBook {
	book, err := store.MustGetOrderBook(env.db, bookID)
	require.NoError(env.t, err)
	return book
}

func (env *testEnv) eventTypes() []types.EventType {
	var out []types.EventType
	for _, e := range env.events.Events() {
		out = append(out, e.Type)
	}
	return out
}

func (env *testEnv) assertBalance(account types.AccountID, asset types.AssetID, delta string) {
	want := initialBalance.Add(dec(delta))
	got := env.balance(account, asset)
	assert.True(env.t, want.Equal(got), "%s %s: want %s, got %s", account, asset, want, got)
}

func assertDec(t assert.TestingT, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got}, msgAndArgs...)...)
}

func assertErrorIs(t assert.TestingT, err, target error) {
	assert.True(t, errors.Is(err, target), "want %v, got %v", target, err)
}

func TestPlaceLimitOrder(t *testing.T) {
	env := newTestEnv(t)

	id := env.mustPlace("alice", types.Buy, "10", "10")
	assert.Equal(t, types.OrderID(1), id)
	assert.Equal(t, []types.EventType{types.EventLimitOrderPlaced}, env.eventTypes())

	order, err := env.order(id)
	require.NoError(t, err)
	assert.Equal(t, int64(12), order.ExpiresAt)
	assertDec(t, "10", order.Amount)

	env.assertBalance("alice", "XOR", "-100")
	assertDec(t, "100", env.escrow("XOR"))
	assert.Equal(t, types.OrderID(1), env.book().LastOrderID)

	dl := env.module.DataLayer(env.ctx())
	bids, err := dl.GetAggregatedBids(bookID)
	require.NoError(t, err)
	volume, ok := bids.Get(dec("10"))
	require.True(t, ok)
	assertDec(t, "10", volume)
	userOrders, err := dl.GetUserLimitOrders("alice", bookID)
	require.NoError(t, err)
	assert.Equal(t, []types.OrderID{1}, userOrders)
	agenda, err := store.GetAgenda(env.db, 12)
	require.NoError(t, err)
	assert.Equal(t, []store.Expiration{{OrderBookID: bookID, OrderID: 1}}, agenda)
}

func TestPlaceLimitOrderValidation(t *testing.T) {
	testCases := map[string]struct {
		price    string
		amount   string
		lifespan uint64
		err      error
	}{
		"price off tick":      {"10.000001", "10", 60000, types.ErrInvalidLimitOrderPrice},
		"zero price":          {"0", "10", 60000, types.ErrInvalidLimitOrderPrice},
		"amount below min":    {"10", "0.5", 60000, types.ErrInvalidOrderAmount},
		"amount above max":    {"10", "100001", 60000, types.ErrInvalidOrderAmount},
		"amount off step":     {"10", "1.000001", 60000, types.ErrInvalidOrderAmount},
		"lifespan too short":  {"10", "10", 1000, types.ErrInvalidLifespan},
		"lifespan too long":   {"10", "10", 31 * 24 * 60 * 60 * 1000, types.ErrInvalidLifespan},
		"default lifespan ok": {"10", "10", 0, nil},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.module.PlaceLimitOrder(env.ctx(), "alice", bookID, dec(tc.price), dec(tc.amount), types.Buy, tc.lifespan)
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			assertErrorIs(t, err, tc.err)
			assert.Empty(t, env.events.Events())
			assert.Equal(t, types.OrderID(0), env.book().LastOrderID)
		})
	}
}

func TestPlaceLimitOrderUnknownBook(t *testing.T) {
	env := newTestEnv(t)
	other := types.OrderBookID{DEXID: 0, Base: "PSWAP", Quote: "XOR"}
	_, err := env.module.PlaceLimitOrder(env.ctx(), "alice", other, dec("10"), dec("10"), types.Buy, 60000)
	assertErrorIs(t, err, types.ErrUnknownOrderBook)
}

func TestPlaceLimitOrderInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.place("dave", types.Buy, "10", "10")
	assertErrorIs(t, err, types.ErrInsufficientBalance)
	assert.Equal(t, types.OrderID(0), env.book().LastOrderID)
	assert.True(t, env.escrow("XOR").IsZero())
	_, err = env.order(1)
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)
}

func TestPlaceLimitOrderRestrictions(t *testing.T) {
	t.Run("orders per user", func(t *testing.T) {
		env := newTestEnv(t)
		for i := 0; i < 10; i++ {
			env.mustPlace("alice", types.Buy, "9", "1")
		}
		_, err := env.place("alice", types.Buy, "9", "1")
		assertErrorIs(t, err, types.ErrUserHasMaxCountOfOpenedOrders)
	})

	t.Run("orders per price", func(t *testing.T) {
		env := newTestEnv(t)
		for i := 0; i < 11; i++ {
			env.mint(types.AccountID(fmt.Sprintf("user%d", i)), "XOR", dec("100"))
		}
		for i := 0; i < 10; i++ {
			_, err := env.module.PlaceLimitOrder(env.ctx(), types.AccountID(fmt.Sprintf("user%d", i)), bookID,
				dec("9"), dec("1"), types.Buy, 60000+uint64(i)*6000)
			require.NoError(t, err)
		}
		_, err := env.place("user10", types.Buy, "9", "1")
		assertErrorIs(t, err, types.ErrPriceReachedMaxCountOfLimitOrders)
	})

	t.Run("prices per side", func(t *testing.T) {
		env := newTestEnv(t)
		for i := 0; i < 10; i++ {
			env.mustPlace("alice", types.Buy, fmt.Sprint(i+1), "1")
		}
		_, err := env.place("bob", types.Buy, "11", "1")
		assertErrorIs(t, err, types.ErrOrderBookReachedMaxCountOfPricesForSide)
		// an existing price level is still open
		env.height++
		env.mustPlace("bob", types.Buy, "10", "1")
	})

	t.Run("expirations per block", func(t *testing.T) {
		env := newTestEnv(t)
		for i := 0; i < 5; i++ {
			env.mustPlace("alice", types.Buy, "9", "1")
			env.mustPlace("bob", types.Buy, "8", "1")
		}
		_, err := env.place("carol", types.Buy, "7", "1")
		assertErrorIs(t, err, types.ErrBlockScheduleFull)
	})

	t.Run("price shift", func(t *testing.T) {
		env := newTestEnv(t)
		// bids are measured against the best bid, not the best ask
		env.mustPlace("bob", types.Sell, "100", "10")
		env.mustPlace("alice", types.Buy, "40", "1")

		env.mustPlace("alice", types.Buy, "50", "1")
		_, err := env.place("alice", types.Buy, "24", "1")
		assertErrorIs(t, err, types.ErrInvalidLimitOrderPrice)
		env.mustPlace("alice", types.Buy, "25", "1")

		// asks only when priced above the best ask
		_, err = env.place("bob", types.Sell, "151", "1")
		assertErrorIs(t, err, types.ErrInvalidLimitOrderPrice)
		env.mustPlace("bob", types.Sell, "150", "1")
	})

	t.Run("price shift ignores better prices", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustPlace("alice", types.Buy, "10", "1")
		env.mustPlace("alice", types.Buy, "100", "1")
		env.mustPlace("bob", types.Sell, "1000", "1")
		env.mustPlace("bob", types.Sell, "150", "1")
	})

	t.Run("far crossing order executes", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustPlace("bob", types.Sell, "10", "10")
		id := env.mustPlace("alice", types.Buy, "16", "5")

		_, err := env.order(id)
		assertErrorIs(t, err, types.ErrUnknownLimitOrder)
		env.assertBalance("alice", "XOR", "-50")
		env.assertBalance("alice", "VAL", "5")
	})
}

func TestCancelLimitOrder(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustPlace("alice", types.Buy, "10", "10")

	err := env.module.CancelLimitOrder(env.ctx(), "bob", bookID, id)
	assertErrorIs(t, err, types.ErrUnauthorized)

	require.NoError(t, env.module.CancelLimitOrder(env.ctx(), "alice", bookID, id))
	require.Len(t, env.events.Events(), 1)
	e := env.events.Events()[0]
	assert.Equal(t, types.EventLimitOrderCanceled, e.Type)
	reason, _ := e.Attribute("reason")
	assert.Equal(t, string(types.CancelReasonManual), reason)

	env.assertBalance("alice", "XOR", "0")
	assert.True(t, env.escrow("XOR").IsZero())
	agenda, err := store.GetAgenda(env.db, 12)
	require.NoError(t, err)
	assert.Empty(t, agenda)

	err = env.module.CancelLimitOrder(env.ctx(), "alice", bookID, id)
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)
}

func TestCancelLimitOrderByAuthority(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustPlace("bob", types.Sell, "10", "3")
	require.NoError(t, env.module.CancelLimitOrder(env.ctx(), "root", bookID, id))
	env.assertBalance("bob", "VAL", "0")
}

func TestCancelLimitOrdersBatchIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	first := env.mustPlace("alice", types.Buy, "10", "1")
	second := env.mustPlace("alice", types.Buy, "9", "1")

	err := env.module.CancelLimitOrdersBatch(env.ctx(), "alice", []CancelRequest{
		{OrderBookID: bookID, OrderIDs: []types.OrderID{first, second, 99}},
	})
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)
	assert.Empty(t, env.events.Events())
	_, err = env.order(first)
	require.NoError(t, err)
	env.assertBalance("alice", "XOR", "-19")

	err = env.module.CancelLimitOrdersBatch(env.ctx(), "alice", []CancelRequest{
		{OrderBookID: bookID, OrderIDs: []types.OrderID{first, second}},
	})
	require.NoError(t, err)
	assert.Len(t, env.events.Events(), 2)
	env.assertBalance("alice", "XOR", "0")
}

// failingBank refuses to release liquidity.
type failingBank struct {
	ledger.Ledger
}

var errBankDown = errors.New("bank is down")

func (failingBank) UnlockLiquidity(kv.Store, types.AccountID, types.OrderBookID, types.AssetID, types.OrderVolume) error {
	return errBankDown
}

func TestCancelLeavesStateOnSettlementFailure(t *testing.T) {
	env := newTestEnvWithParams(t, types.TestParams(), func(env *testEnv) Bank {
		return failingBank{env.ledger}
	})
	id := env.mustPlace("alice", types.Buy, "10", "10")

	err := env.module.CancelLimitOrder(env.ctx(), "alice", bookID, id)
	assertErrorIs(t, err, errBankDown)
	assert.Empty(t, env.events.Events())
	_, err = env.order(id)
	require.NoError(t, err)
	assertDec(t, "100", env.escrow("XOR"))
	agenda, err := store.GetAgenda(env.db, 12)
	require.NoError(t, err)
	assert.Len(t, agenda, 1)
}

func TestPlaceLimitOrderCrossesSpread(t *testing.T) {
	env := newTestEnv(t)
	env.mustPlace("bob", types.Sell, "10", "10")
	env.mustPlace("bob", types.Sell, "11", "10")

	id := env.mustPlace("alice", types.Buy, "11", "15")
	assert.Equal(t, types.OrderID(3), id)
	assert.Equal(t, []types.EventType{
		types.EventLimitOrderFilled,
		types.EventLimitOrderExecuted,
		types.EventMarketOrderExecuted,
	}, env.eventTypes())

	env.assertBalance("alice", "XOR", "-155")
	env.assertBalance("alice", "VAL", "15")
	env.assertBalance("bob", "XOR", "155")
	env.assertBalance("bob", "VAL", "-20")
	assert.True(t, env.escrow("XOR").IsZero())
	assertDec(t, "5", env.escrow("VAL"))

	_, err := env.order(1)
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)
	second, err := env.order(2)
	require.NoError(t, err)
	assertDec(t, "5", second.Amount)
	_, err = env.order(3)
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)
	assert.Equal(t, types.OrderID(3), env.book().LastOrderID, "the id of a filled order is consumed")
}

func TestPlaceLimitOrderRestsRemainder(t *testing.T) {
	env := newTestEnv(t)
	env.mustPlace("bob", types.Sell, "10", "10")

	id := env.mustPlace("alice", types.Buy, "10", "15")
	order, err := env.order(id)
	require.NoError(t, err)
	assertDec(t, "5", order.Amount)
	assert.Equal(t, types.Buy, order.Side)

	env.assertBalance("alice", "XOR", "-150")
	env.assertBalance("alice", "VAL", "10")
	assertDec(t, "50", env.escrow("XOR"))
	assert.True(t, env.escrow("VAL").IsZero())
}

func TestPlaceLimitOrderFoldsSmallRemainder(t *testing.T) {
	env := newTestEnv(t)
	env.mustPlace("bob", types.Sell, "10", "10")
	env.mustPlace("bob", types.Sell, "12", "10")

	id := env.mustPlace("alice", types.Buy, "10", "10.5")
	_, err := env.order(id)
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)

	env.assertBalance("alice", "XOR", "-106")
	env.assertBalance("alice", "VAL", "10.5")
	second, err := env.order(2)
	require.NoError(t, err)
	assertDec(t, "9.5", second.Amount)
}

func TestStatusGates(t *testing.T) {
	env := newTestEnv(t)
	ask := env.mustPlace("bob", types.Sell, "10", "10")

	err := env.module.ChangeOrderBookStatus(env.ctx(), "alice", bookID, types.StatusStop)
	assertErrorIs(t, err, types.ErrUnauthorized)

	require.NoError(t, env.module.ChangeOrderBookStatus(env.ctx(), "root", bookID, types.StatusPlaceAndCancel))
	assert.Equal(t, types.StatusPlaceAndCancel, env.book().Status)
	_, err = env.place("alice", types.Buy, "10", "1")
	assertErrorIs(t, err, types.ErrInvalidLimitOrderPrice)
	bid := env.mustPlace("alice", types.Buy, "9", "1")
	_, _, err = env.module.ExecuteMarketOrder(env.ctx(), "alice", bookID, types.Buy, dec("1"))
	assertErrorIs(t, err, types.ErrTradingIsForbidden)

	require.NoError(t, env.module.ChangeOrderBookStatus(env.ctx(), "root", bookID, types.StatusOnlyCancel))
	_, err = env.place("alice", types.Buy, "9", "1")
	assertErrorIs(t, err, types.ErrPlacementOfLimitOrdersIsForbidden)
	require.NoError(t, env.module.CancelLimitOrder(env.ctx(), "alice", bookID, bid))

	require.NoError(t, env.module.ChangeOrderBookStatus(env.ctx(), "root", bookID, types.StatusStop))
	err = env.module.CancelLimitOrder(env.ctx(), "bob", bookID, ask)
	assertErrorIs(t, err, types.ErrCancellationOfLimitOrdersIsForbidden)

	err = env.module.ChangeOrderBookStatus(env.ctx(), "root", bookID, types.OrderBookStatus(9))
	assertErrorIs(t, err, types.ErrInvalidStatus)
}

func TestExecuteMarketOrder(t *testing.T) {
	t.Run("sell", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustPlace("bob", types.Buy, "9", "10")
		env.mustPlace("bob", types.Buy, "8", "10")

		input, output, err := env.module.ExecuteMarketOrder(env.ctx(), "alice", bookID, types.Sell, dec("15"))
		require.NoError(t, err)
		assert.True(t, input.Equal(types.Base(dec("15"))), "input %s", input)
		assert.True(t, output.Equal(types.Quote(dec("130"))), "output %s", output)

		env.assertBalance("alice", "XOR", "130")
		env.assertBalance("alice", "VAL", "-15")
		env.assertBalance("bob", "VAL", "15")
		assertDec(t, "40", env.escrow("XOR"))

		last := env.events.Events()[len(env.events.Events())-1]
		assert.Equal(t, types.EventMarketOrderExecuted, last.Type)
		price, _ := last.Attribute("average_price")
		assertDec(t, "8.666666666666666666", dec(price))
	})

	t.Run("buy", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustPlace("bob", types.Sell, "10", "10")
		env.mustPlace("carol", types.Sell, "11", "10")

		input, output, err := env.module.ExecuteMarketOrder(env.ctx(), "alice", bookID, types.Buy, dec("20"))
		require.NoError(t, err)
		assert.True(t, input.Equal(types.Quote(dec("210"))), "input %s", input)
		assert.True(t, output.Equal(types.Base(dec("20"))), "output %s", output)
		env.assertBalance("bob", "XOR", "100")
		env.assertBalance("carol", "XOR", "110")
		assert.True(t, env.escrow("VAL").IsZero())
	})

	t.Run("not enough liquidity", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustPlace("bob", types.Sell, "10", "10")
		_, _, err := env.module.ExecuteMarketOrder(env.ctx(), "alice", bookID, types.Buy, dec("15"))
		assertErrorIs(t, err, types.ErrNotEnoughLiquidityInOrderBook)
		env.assertBalance("alice", "XOR", "0")
		order, err := env.order(1)
		require.NoError(t, err)
		assertDec(t, "10", order.Amount)
	})

	for _, amount := range []string{"0", "0.5", "1.000001", "100001"} {
		amount := amount
		t.Run("invalid amount "+amount, func(t *testing.T) {
			env := newTestEnv(t)
			env.mustPlace("bob", types.Sell, "10", "10")
			_, _, err := env.module.ExecuteMarketOrder(env.ctx(), "alice", bookID, types.Buy, dec(amount))
			assertErrorIs(t, err, types.ErrInvalidOrderAmount)
		})
	}
}

func TestServiceExpirations(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustPlace("alice", types.Buy, "10", "10")

	env.height = 11
	require.NoError(t, env.module.ServiceExpirations(env.ctx(), NewWeightMeter(1_000_000)))
	_, err := env.order(id)
	require.NoError(t, err)

	env.height = 12
	require.NoError(t, env.module.ServiceExpirations(env.ctx(), NewWeightMeter(1_000_000)))
	assert.Equal(t, []types.EventType{types.EventLimitOrderExpired}, env.eventTypes())
	_, err = env.order(id)
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)
	env.assertBalance("alice", "XOR", "0")
	assert.True(t, env.escrow("XOR").IsZero())
	_, ok, err := store.GetIncompleteExpirationsSince(env.db)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceExpirationsResumesFromCursor(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustPlace("alice", types.Buy, "10", "10")

	env.height = 12
	require.NoError(t, env.module.ServiceExpirations(env.ctx(), NewWeightMeter(0)))
	since, ok, err := store.GetIncompleteExpirationsSince(env.db)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(12), since)
	_, err = env.order(id)
	require.NoError(t, err)

	env.height = 13
	require.NoError(t, env.module.ServiceExpirations(env.ctx(), NewWeightMeter(1_000_000)))
	_, err = env.order(id)
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)
	_, ok, err = store.GetIncompleteExpirationsSince(env.db)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceExpirationsPartially(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.mustPlace("alice", types.Buy, "10", "1")
	}

	env.height = 12
	weight := ServiceBaseWeight + ServiceBlockBaseWeight + ServiceSingleExpirationWeight
	meter := NewWeightMeter(weight)
	require.NoError(t, env.module.ServiceExpirations(env.ctx(), meter))
	assert.Equal(t, weight, meter.Consumed())

	// latest scheduled first
	_, err := env.order(3)
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)
	for _, id := range []types.OrderID{1, 2} {
		_, err := env.order(id)
		require.NoError(t, err)
	}
	agenda, err := store.GetAgenda(env.db, 12)
	require.NoError(t, err)
	assert.Len(t, agenda, 2)
	since, ok, err := store.GetIncompleteExpirationsSince(env.db)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(12), since)

	env.height = 13
	require.NoError(t, env.module.ServiceExpirations(env.ctx(), NewWeightMeter(1_000_000)))
	assert.Len(t, env.events.Events(), 2)
	env.assertBalance("alice", "XOR", "0")
}

func TestServiceExpirationsReportsFailures(t *testing.T) {
	env := newTestEnv(t)
	env.mustPlace("alice", types.Buy, "10", "1")
	agenda, err := store.GetAgenda(env.db, 12)
	require.NoError(t, err)
	require.NoError(t, store.SetAgenda(env.db, 12, append(agenda, store.Expiration{OrderBookID: bookID, OrderID: 99})))

	env.height = 12
	require.NoError(t, env.module.ServiceExpirations(env.ctx(), NewWeightMeter(1_000_000)))
	assert.Equal(t, []types.EventType{types.EventExpirationFailure, types.EventLimitOrderExpired}, env.eventTypes())
	env.assertBalance("alice", "XOR", "0")
}

func TestDeleteOrderBook(t *testing.T) {
	env := newTestEnv(t)
	env.mustPlace("alice", types.Buy, "9", "10")
	env.mustPlace("bob", types.Sell, "11", "10")

	_, err := env.module.DeleteOrderBook(env.ctx(), "alice", bookID)
	assertErrorIs(t, err, types.ErrUnauthorized)

	count, err := env.module.DeleteOrderBook(env.ctx(), "root", bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, types.EventOrderBookDeleted, env.eventTypes()[len(env.eventTypes())-1])

	_, ok, err := store.GetOrderBook(env.db, bookID)
	require.NoError(t, err)
	assert.False(t, ok)
	env.assertBalance("alice", "XOR", "0")
	env.assertBalance("bob", "VAL", "0")
	agenda, err := store.GetAgenda(env.db, 12)
	require.NoError(t, err)
	assert.Empty(t, agenda)

	// the pair can be listed again
	_, err = env.module.CreateOrderBook(env.ctx(), "alice", bookID)
	require.NoError(t, err)
}

func TestUpdateOrderBook(t *testing.T) {
	env := newTestEnv(t)
	bid := env.mustPlace("alice", types.Buy, "10", "10.5")
	ask := env.mustPlace("bob", types.Sell, "12", "1.5")

	err := env.module.UpdateOrderBook(env.ctx(), "alice", bookID, dec("0.00001"), dec("2"), dec("2"), dec("100000"))
	assertErrorIs(t, err, types.ErrUnauthorized)
	err = env.module.UpdateOrderBook(env.ctx(), "root", bookID, dec("0.00001"), dec("2"), dec("3"), dec("100000"))
	assertErrorIs(t, err, types.ErrInvalidMinLotSize)

	require.NoError(t, env.module.UpdateOrderBook(env.ctx(), "root", bookID, dec("0.00001"), dec("2"), dec("2"), dec("100000")))
	assert.Equal(t, []types.EventType{types.EventOrderBookUpdated}, env.eventTypes())

	book := env.book()
	assertDec(t, "2", book.StepLotSize)
	assert.Equal(t, types.TechStatusUpdating, book.TechStatus)
	cursor, ok, err := store.GetAlignmentCursor(env.db, bookID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.OrderID(0), cursor.Last)

	// the book is locked until its orders are aligned
	_, err = env.place("carol", types.Buy, "9", "2")
	assertErrorIs(t, err, types.ErrOrderBookIsLocked)
	_, _, err = env.module.ExecuteMarketOrder(env.ctx(), "carol", bookID, types.Sell, dec("2"))
	assertErrorIs(t, err, types.ErrOrderBookIsLocked)
	assert.False(t, env.module.CanExchange(env.ctx(), 0, "XOR", "VAL"))
	err = env.module.UpdateOrderBook(env.ctx(), "root", bookID, dec("0.00001"), dec("1"), dec("1"), dec("100000"))
	assertErrorIs(t, err, types.ErrOrderBookIsLocked)

	require.NoError(t, env.module.ServiceAlignment(env.ctx(), NewWeightMeter(1_000_000)))
	assert.Equal(t, []types.EventType{
		types.EventLimitOrderUpdated,
		types.EventLimitOrderCanceled,
	}, env.eventTypes())

	assert.Equal(t, types.TechStatusReady, env.book().TechStatus)
	_, ok, err = store.GetAlignmentCursor(env.db, bookID)
	require.NoError(t, err)
	assert.False(t, ok)

	order, err := env.order(bid)
	require.NoError(t, err)
	assertDec(t, "10", order.Amount)
	env.assertBalance("alice", "XOR", "-100")
	assertDec(t, "100", env.escrow("XOR"))

	_, err = env.order(ask)
	assertErrorIs(t, err, types.ErrUnknownLimitOrder)
	env.assertBalance("bob", "VAL", "0")
	assert.True(t, env.escrow("VAL").IsZero())

	env.mustPlace("carol", types.Buy, "9", "2")
	assert.True(t, env.module.CanExchange(env.ctx(), 0, "XOR", "VAL"))
}

func TestUpdateEmptyOrderBook(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.module.UpdateOrderBook(env.ctx(), "root", bookID, dec("0.00001"), dec("2"), dec("2"), dec("100000")))

	assert.Equal(t, types.TechStatusReady, env.book().TechStatus)
	cursors, err := store.GetAlignmentCursors(env.db)
	require.NoError(t, err)
	assert.Empty(t, cursors)
	env.mustPlace("alice", types.Buy, "10", "2")
}

func TestServiceAlignmentResumesAcrossBlocks(t *testing.T) {
	params := types.TestParams()
	params.SoftMinMaxRatio = 2
	env := newTestEnvWithParams(t, params)
	for _, price := range []string{"10", "9", "8", "7", "6"} {
		env.mustPlace("alice", types.Buy, price, "1.5")
	}
	require.NoError(t, env.module.UpdateOrderBook(env.ctx(), "root", bookID, dec("0.00001"), dec("1"), dec("1"), dec("100000")))

	cursor := func() types.OrderID {
		c, ok, err := store.GetAlignmentCursor(env.db, bookID)
		require.NoError(t, err)
		require.True(t, ok)
		return c.Last
	}
	amount := func(id types.OrderID) decimal.Decimal {
		o, err := env.order(id)
		require.NoError(t, err)
		return o.Amount
	}

	// at most SoftMinMaxRatio orders of a book per call
	env.height++
	require.NoError(t, env.module.ServiceAlignment(env.ctx(), NewWeightMeter(1_000_000)))
	assert.Equal(t, types.OrderID(2), cursor())
	assertDec(t, "1", amount(1))
	assertDec(t, "1", amount(2))
	assertDec(t, "1.5", amount(3))
	assert.Equal(t, types.TechStatusUpdating, env.book().TechStatus)

	// cancellation stays allowed and leaves a gap the cursor skips
	require.NoError(t, env.module.CancelLimitOrder(env.ctx(), "alice", bookID, 3))

	// nothing fits into an empty budget
	env.height++
	require.NoError(t, env.module.ServiceAlignment(env.ctx(), NewWeightMeter(0)))
	assert.Equal(t, types.OrderID(2), cursor())

	env.height++
	meter := NewWeightMeter(AlignSingleOrderWeight)
	require.NoError(t, env.module.ServiceAlignment(env.ctx(), meter))
	assert.Equal(t, AlignSingleOrderWeight, meter.Consumed())
	assert.Equal(t, types.OrderID(4), cursor())
	assertDec(t, "1", amount(4))
	assertDec(t, "1.5", amount(5))
	assert.Equal(t, types.TechStatusUpdating, env.book().TechStatus)

	env.height++
	require.NoError(t, env.module.ServiceAlignment(env.ctx(), NewWeightMeter(1_000_000)))
	assertDec(t, "1", amount(5))
	assert.Equal(t, types.TechStatusReady, env.book().TechStatus)
	_, ok, err := store.GetAlignmentCursor(env.db, bookID)
	require.NoError(t, err)
	assert.False(t, ok)

	env.assertBalance("alice", "XOR", "-32")
	assertDec(t, "32", env.escrow("XOR"))
}

func TestServiceAlignmentReportsFailures(t *testing.T) {
	env := newTestEnvWithParams(t, types.TestParams(), func(env *testEnv) Bank {
		return failingBank{env.ledger}
	})
	id := env.mustPlace("alice", types.Buy, "10", "1.5")
	require.NoError(t, env.module.UpdateOrderBook(env.ctx(), "root", bookID, dec("0.00001"), dec("1"), dec("1"), dec("100000")))

	require.NoError(t, env.module.ServiceAlignment(env.ctx(), NewWeightMeter(1_000_000)))
	assert.Equal(t, []types.EventType{types.EventAlignmentFailure}, env.eventTypes())
	assert.Equal(t, types.TechStatusReady, env.book().TechStatus, "a failed order does not keep the book locked")

	order, err := env.order(id)
	require.NoError(t, err)
	assertDec(t, "1.5", order.Amount)
	assertDec(t, "15", env.escrow("XOR"))
}

func TestDeleteOrderBookWhileAligning(t *testing.T) {
	env := newTestEnv(t)
	env.mustPlace("alice", types.Buy, "10", "1.5")
	require.NoError(t, env.module.UpdateOrderBook(env.ctx(), "root", bookID, dec("0.00001"), dec("1"), dec("1"), dec("100000")))

	_, err := env.module.DeleteOrderBook(env.ctx(), "root", bookID)
	require.NoError(t, err)
	cursors, err := store.GetAlignmentCursors(env.db)
	require.NoError(t, err)
	assert.Empty(t, cursors)
	env.assertBalance("alice", "XOR", "0")
}

func TestCreateOrderBook(t *testing.T) {
	testCases := map[string]struct {
		creator types.AccountID
		id      types.OrderBookID
		err     error
	}{
		"same assets":       {"alice", types.OrderBookID{Base: "XOR", Quote: "XOR"}, types.ErrForbiddenToCreateOrderBookWithSameAssets},
		"unknown dex":       {"alice", types.OrderBookID{DEXID: 7, Base: "PSWAP", Quote: "XOR"}, types.ErrInvalidOrderBookID},
		"wrong quote":       {"alice", types.OrderBookID{Base: "XOR", Quote: "VAL"}, types.ErrNotAllowedQuoteAsset},
		"unknown base":      {"alice", types.OrderBookID{Base: "DOGE", Quote: "XOR"}, types.ErrAssetNotExists},
		"already exists":    {"alice", bookID, types.ErrOrderBookAlreadyExists},
		"nft not held":      {"alice", types.OrderBookID{Base: "NFT", Quote: "XOR"}, types.ErrUserHasNoNFT},
		"nft by authority":  {"root", types.OrderBookID{Base: "NFT", Quote: "XOR"}, nil},
		"divisible by user": {"alice", types.OrderBookID{Base: "PSWAP", Quote: "XOR"}, nil},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			book, err := env.module.CreateOrderBook(env.ctx(), tc.creator, tc.id)
			if tc.err != nil {
				assertErrorIs(t, err, tc.err)
				assert.Empty(t, env.events.Events())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.id, book.ID)
			assert.Equal(t, types.StatusTrade, book.Status)
			assert.Equal(t, []types.EventType{types.EventOrderBookCreated}, env.eventTypes())
		})
	}
}

func TestCreateNFTOrderBookByHolder(t *testing.T) {
	env := newTestEnv(t)
	env.mint("alice", "NFT", dec("1"))
	book, err := env.module.CreateOrderBook(env.ctx(), "alice", types.OrderBookID{Base: "NFT", Quote: "XOR"})
	require.NoError(t, err)
	assertDec(t, "1", book.StepLotSize)
	assertDec(t, "1", book.MinLotSize)
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t)
	env.mustPlace("bob", types.Sell, "10", "10")
	env.mustPlace("bob", types.Sell, "11", "10")

	testCases := map[string]struct {
		input, output types.AssetID
		amount        types.SwapAmount
		want          string
		err           error
	}{
		"desired input":          {"XOR", "VAL", types.DesiredInput(dec("155"), decimal.Zero), "15", nil},
		"desired output":         {"XOR", "VAL", types.DesiredOutput(dec("15"), decimal.Zero), "155", nil},
		"min output not reached": {"XOR", "VAL", types.DesiredInput(dec("155"), dec("16")), "", types.ErrSlippageLimitExceeded},
		"max input exceeded":     {"XOR", "VAL", types.DesiredOutput(dec("15"), dec("150")), "", types.ErrSlippageLimitExceeded},
		"too much":               {"XOR", "VAL", types.DesiredOutput(dec("21"), decimal.Zero), "", types.ErrNotEnoughLiquidityInOrderBook},
		"empty side":             {"VAL", "XOR", types.DesiredInput(dec("1"), decimal.Zero), "", types.ErrNotEnoughLiquidityInOrderBook},
		"no dex asset":           {"VAL", "PSWAP", types.DesiredInput(dec("1"), decimal.Zero), "", types.ErrInvalidAsset},
		"unknown book":           {"XOR", "PSWAP", types.DesiredInput(dec("1"), decimal.Zero), "", types.ErrUnknownOrderBook},
		"zero amount":            {"XOR", "VAL", types.DesiredInput(decimal.Zero, decimal.Zero), "", types.ErrInvalidOrderAmount},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			outcome, err := env.module.Quote(env.ctx(), 0, tc.input, tc.output, tc.amount, true)
			if tc.err != nil {
				assertErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assertDec(t, tc.want, outcome.Amount)
			assert.True(t, outcome.Fee.IsZero())
		})
	}

	assert.True(t, env.module.CanExchange(env.ctx(), 0, "XOR", "VAL"))
	assert.True(t, env.module.CanExchange(env.ctx(), 0, "VAL", "XOR"))
	assert.False(t, env.module.CanExchange(env.ctx(), 0, "XOR", "PSWAP"))
	assert.False(t, env.module.CanExchange(env.ctx(), 1, "XOR", "VAL"))
}

func TestExchange(t *testing.T) {
	env := newTestEnv(t)
	env.mustPlace("bob", types.Sell, "10", "10")
	env.mustPlace("bob", types.Sell, "11", "10")

	outcome, err := env.module.Exchange(env.ctx(), "alice", "carol", 0, "XOR", "VAL", types.DesiredInput(dec("155"), dec("15")))
	require.NoError(t, err)
	assertDec(t, "15", outcome.Amount)
	env.assertBalance("alice", "XOR", "-155")
	env.assertBalance("alice", "VAL", "0")
	env.assertBalance("carol", "VAL", "15")
	env.assertBalance("bob", "XOR", "155")

	_, err = env.module.Exchange(env.ctx(), "alice", "alice", 0, "XOR", "VAL", types.DesiredOutput(dec("5"), dec("50")))
	assertErrorIs(t, err, types.ErrSlippageLimitExceeded)
	env.assertBalance("alice", "XOR", "-155")

	rewards, err := env.module.CheckRewards(env.ctx(), 0, "XOR", "VAL", dec("1"), dec("1"))
	require.NoError(t, err)
	assert.Empty(t, rewards)
}
