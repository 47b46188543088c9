package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLifespan(t *testing.T) {
	testCases := map[string]struct {
		lifespan uint64
		expected int64
	}{
		"zero":                 {0, 11},
		"one millisecond":      {1, 12},
		"one block":            {6000, 12},
		"just over one block":  {6001, 13},
		"exact multiple":       {12000, 13},
		"just under multiple":  {11999, 13},
		"just over multiple":   {12001, 14},
		"max default lifespan": {30 * 24 * 60 * 60 * 1000, 10 + 432000 + 1},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolveLifespan(10, tc.lifespan, 6000))
		})
	}
}

func TestNewLimitOrder(t *testing.T) {
	params := TestParams()

	o := NewLimitOrder(1, "alice", Buy, dec("10"), dec("5"), 1000, 0, 10, params)
	assert.Equal(t, params.MaxOrderLifespan, o.Lifespan, "zero lifespan means the longest one")
	assert.Equal(t, ResolveLifespan(10, params.MaxOrderLifespan, params.MsPerBlock), o.ExpiresAt)
	assert.True(t, o.Amount.Equal(o.OriginalAmount))

	o = NewLimitOrder(2, "alice", Sell, dec("10"), dec("5"), 1000, params.MinOrderLifespan, 10, params)
	assert.Equal(t, params.MinOrderLifespan, o.Lifespan)
	assert.Equal(t, int64(10+10+1), o.ExpiresAt)
}

func TestLimitOrderValidateBasic(t *testing.T) {
	params := TestParams()
	valid := NewLimitOrder(1, "alice", Buy, dec("10"), dec("5"), 0, params.MinOrderLifespan, 1, params)

	testCases := map[string]struct {
		modify func(*LimitOrder)
		err    error
	}{
		"valid":                {func(*LimitOrder) {}, nil},
		"lifespan too short":   {func(o *LimitOrder) { o.Lifespan = params.MinOrderLifespan - 1 }, ErrInvalidLifespan},
		"lifespan too long":    {func(o *LimitOrder) { o.Lifespan = params.MaxOrderLifespan + 1 }, ErrInvalidLifespan},
		"zero amount":          {func(o *LimitOrder) { o.Amount = dec("0") }, ErrInvalidOrderAmount},
		"amount over original": {func(o *LimitOrder) { o.Amount = dec("6") }, ErrInvalidOrderAmount},
		"zero price":           {func(o *LimitOrder) { o.Price = dec("0") }, ErrInvalidLimitOrderPrice},
		"negative price":       {func(o *LimitOrder) { o.Price = dec("-1") }, ErrInvalidLimitOrderPrice},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			o := valid
			tc.modify(&o)
			err := o.ValidateBasic(params)
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestLimitOrderDealAmount(t *testing.T) {
	buy := LimitOrder{Side: Buy, Price: dec("2.5"), Amount: dec("4")}
	sell := LimitOrder{Side: Sell, Price: dec("2.5"), Amount: dec("4")}
	part := dec("2")

	testCases := map[string]struct {
		order    LimitOrder
		role     MarketRole
		base     *OrderVolume
		expected OrderAmount
	}{
		"maker buy":          {buy, Maker, nil, Base(dec("4"))},
		"maker sell":         {sell, Maker, nil, Quote(dec("10"))},
		"taker buy":          {buy, Taker, nil, Quote(dec("10"))},
		"taker sell":         {sell, Taker, nil, Base(dec("4"))},
		"maker sell partial": {sell, Maker, &part, Quote(dec("5"))},
		"taker buy partial":  {buy, Taker, &part, Quote(dec("5"))},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			got := tc.order.DealAmount(tc.role, tc.base)
			assert.True(t, got.Equal(tc.expected), "got %s", got)
		})
	}

	assert.True(t, buy.LockedAmount().Equal(Quote(dec("10"))))
	assert.True(t, sell.LockedAmount().Equal(Base(dec("4"))))
}

func TestLimitOrderIsEmpty(t *testing.T) {
	o := LimitOrder{Amount: dec("1")}
	assert.False(t, o.IsEmpty())
	assert.True(t, o.WithAmount(dec("0")).IsEmpty())
	assert.False(t, o.IsEmpty(), "WithAmount returns a copy")
}
