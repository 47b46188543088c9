package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LimitOrder is a resting order of one owner at a fixed price.
//
// Amount only ever decreases; the order is removed once it reaches zero.
type LimitOrder struct {
	ID             OrderID     `json:"id"`
	Owner          AccountID   `json:"owner"`
	Side           Side        `json:"side"`
	Price          OrderPrice  `json:"price"`
	OriginalAmount OrderVolume `json:"original_amount"`
	Amount         OrderVolume `json:"amount"`
	// Time is the ledger time of placement in milliseconds.
	Time int64 `json:"time"`
	// Lifespan is the requested lifetime in milliseconds.
	Lifespan uint64 `json:"lifespan"`
	// ExpiresAt is the block the order is scheduled to expire at.
	ExpiresAt int64 `json:"expires_at"`
}

// NewLimitOrder returns an order placed at the given block and time. A zero
// lifespan means the longest allowed one.
func NewLimitOrder(
	id OrderID,
	owner AccountID,
	side Side,
	price OrderPrice,
	amount OrderVolume,
	time int64,
	lifespan uint64,
	currentBlock int64,
	params Params,
) LimitOrder {
	if lifespan == 0 {
		lifespan = params.MaxOrderLifespan
	}
	return LimitOrder{
		ID:             id,
		Owner:          owner,
		Side:           side,
		Price:          price,
		OriginalAmount: amount,
		Amount:         amount,
		Time:           time,
		Lifespan:       lifespan,
		ExpiresAt:      ResolveLifespan(currentBlock, lifespan, params.MsPerBlock),
	}
}

// ResolveLifespan maps a lifespan in milliseconds onto the block at which
// the order must be expired. The extra block guarantees the order lives at
// least as long as requested.
func ResolveLifespan(currentBlock int64, lifespan, msPerBlock uint64) int64 {
	blocks := (lifespan + msPerBlock - 1) / msPerBlock
	return currentBlock + int64(blocks) + 1
}

// ValidateBasic checks the order against the global params.
func (o LimitOrder) ValidateBasic(params Params) error {
	if o.Lifespan < params.MinOrderLifespan || o.Lifespan > params.MaxOrderLifespan {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidLifespan,
			o.Lifespan, params.MinOrderLifespan, params.MaxOrderLifespan)
	}
	if !o.Amount.IsPositive() || o.Amount.GreaterThan(o.OriginalAmount) {
		return fmt.Errorf("%w: %s", ErrInvalidOrderAmount, o.Amount)
	}
	if !o.Price.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidLimitOrderPrice, o.Price)
	}
	return nil
}

// IsEmpty reports whether nothing is left to execute.
func (o LimitOrder) IsEmpty() bool {
	return !o.Amount.IsPositive()
}

// DealAmount returns what the order gives or gets when baseAmount of base
// asset is exchanged. A nil baseAmount means the whole remaining amount.
//
//	Maker Buy,  Taker Sell -> Base(base)
//	Maker Sell, Taker Buy  -> Quote(price * base)
func (o LimitOrder) DealAmount(role MarketRole, baseAmount *OrderVolume) OrderAmount {
	base := o.Amount
	if baseAmount != nil {
		base = *baseAmount
	}
	if (role == Maker && o.Side == Buy) || (role == Taker && o.Side == Sell) {
		return Base(base)
	}
	return Quote(Truncate(o.Price.Mul(base)))
}

// LockedAmount is the amount the owner currently has locked for the order.
func (o LimitOrder) LockedAmount() OrderAmount {
	return o.DealAmount(Taker, nil)
}

func (o LimitOrder) String() string {
	return fmt.Sprintf("LimitOrder{%d %s %s %s@%s}", o.ID, o.Owner, o.Side, o.Amount, o.Price)
}

// Equal compares orders value-wise.
func (o LimitOrder) Equal(other LimitOrder) bool {
	return o.ID == other.ID &&
		o.Owner == other.Owner &&
		o.Side == other.Side &&
		o.Price.Equal(other.Price) &&
		o.OriginalAmount.Equal(other.OriginalAmount) &&
		o.Amount.Equal(other.Amount) &&
		o.Time == other.Time &&
		o.Lifespan == other.Lifespan &&
		o.ExpiresAt == other.ExpiresAt
}

// WithAmount returns a copy of the order holding amount.
func (o LimitOrder) WithAmount(amount decimal.Decimal) LimitOrder {
	o.Amount = amount
	return o
}
