package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Params are the engine constants. They bound the cost of every operation,
// including full book deletion and per-block expiration servicing.
type Params struct {
	MsPerBlock       uint64 `json:"ms_per_block" mapstructure:"ms-per-block" toml:"ms-per-block"`
	MinOrderLifespan uint64 `json:"min_order_lifespan" mapstructure:"min-order-lifespan" toml:"min-order-lifespan"`
	MaxOrderLifespan uint64 `json:"max_order_lifespan" mapstructure:"max-order-lifespan" toml:"max-order-lifespan"`

	MaxOpenedLimitOrdersPerUser int `json:"max_opened_limit_orders_per_user" mapstructure:"max-opened-limit-orders-per-user" toml:"max-opened-limit-orders-per-user"`
	MaxLimitOrdersForPrice      int `json:"max_limit_orders_for_price" mapstructure:"max-limit-orders-for-price" toml:"max-limit-orders-for-price"`
	MaxSidePriceCount           int `json:"max_side_price_count" mapstructure:"max-side-price-count" toml:"max-side-price-count"`
	MaxExpiringOrdersPerBlock   int `json:"max_expiring_orders_per_block" mapstructure:"max-expiring-orders-per-block" toml:"max-expiring-orders-per-block"`

	// MaxPriceShift is the largest relative distance of a new limit order
	// price behind the best price of its own side.
	MaxPriceShift decimal.Decimal `json:"max_price_shift" mapstructure:"max-price-shift" toml:"max-price-shift"`

	SoftMinMaxRatio int64 `json:"soft_min_max_ratio" mapstructure:"soft-min-max-ratio" toml:"soft-min-max-ratio"`
	HardMinMaxRatio int64 `json:"hard_min_max_ratio" mapstructure:"hard-min-max-ratio" toml:"hard-min-max-ratio"`
}

// DefaultParams returns the production constants.
func DefaultParams() Params {
	return Params{
		MsPerBlock:                  6000,
		MinOrderLifespan:            60 * 1000,
		MaxOrderLifespan:            30 * 24 * 60 * 60 * 1000,
		MaxOpenedLimitOrdersPerUser: 1000,
		MaxLimitOrdersForPrice:      1024,
		MaxSidePriceCount:           1024,
		MaxExpiringOrdersPerBlock:   1024,
		MaxPriceShift:               decimal.RequireFromString("0.5"),
		SoftMinMaxRatio:             1000,
		HardMinMaxRatio:             4000000,
	}
}

// TestParams returns small limits so capacity paths are cheap to reach.
func TestParams() Params {
	p := DefaultParams()
	p.MaxOpenedLimitOrdersPerUser = 10
	p.MaxLimitOrdersForPrice = 10
	p.MaxSidePriceCount = 10
	p.MaxExpiringOrdersPerBlock = 10
	return p
}

// ValidateBasic performs basic validation (checking param bounds etc.) and
// returns an error if any check fails.
func (p Params) ValidateBasic() error {
	if p.MsPerBlock == 0 {
		return errors.New("ms-per-block can't be zero")
	}
	if p.MinOrderLifespan > p.MaxOrderLifespan {
		return fmt.Errorf("min-order-lifespan (%d) can't be greater than max-order-lifespan (%d)",
			p.MinOrderLifespan, p.MaxOrderLifespan)
	}
	if p.MaxOpenedLimitOrdersPerUser <= 0 {
		return errors.New("max-opened-limit-orders-per-user must be positive")
	}
	if p.MaxLimitOrdersForPrice <= 0 {
		return errors.New("max-limit-orders-for-price must be positive")
	}
	if p.MaxSidePriceCount <= 0 {
		return errors.New("max-side-price-count must be positive")
	}
	if p.MaxExpiringOrdersPerBlock <= 0 {
		return errors.New("max-expiring-orders-per-block must be positive")
	}
	if !p.MaxPriceShift.IsPositive() || p.MaxPriceShift.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("max-price-shift must be in (0, 1]")
	}
	if p.SoftMinMaxRatio <= 0 || p.HardMinMaxRatio < p.SoftMinMaxRatio {
		return errors.New("min/max ratios must be positive and hard >= soft")
	}
	return nil
}
