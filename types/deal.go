package types

import (
	"errors"
	"fmt"
)

// DealInfo summarizes one matched trade.
type DealInfo struct {
	InputAsset   AssetID     `json:"input_asset"`
	InputAmount  OrderAmount `json:"input_amount"`
	OutputAsset  AssetID     `json:"output_asset"`
	OutputAmount OrderAmount `json:"output_amount"`
	AveragePrice OrderPrice  `json:"average_price"`
	Side         Side        `json:"side"`
}

// IsValid reports whether both amounts and the average price are non-zero,
// the assets differ and exactly one amount is base-denominated.
func (d DealInfo) IsValid() bool {
	return d.InputAsset != d.OutputAsset &&
		!d.InputAmount.Value().IsZero() &&
		!d.OutputAmount.Value().IsZero() &&
		!d.AveragePrice.IsZero() &&
		!d.InputAmount.IsSame(d.OutputAmount)
}

// BaseAmount returns the base-denominated side of the deal.
func (d DealInfo) BaseAmount() OrderVolume {
	if d.InputAmount.IsBase() {
		return d.InputAmount.Value()
	}
	return d.OutputAmount.Value()
}

// QuoteAmount returns the quote-denominated side of the deal.
func (d DealInfo) QuoteAmount() OrderVolume {
	if d.InputAmount.IsQuote() {
		return d.InputAmount.Value()
	}
	return d.OutputAmount.Value()
}

// SwapVariant selects which side of a swap is fixed.
type SwapVariant uint8

const (
	WithDesiredInput SwapVariant = iota
	WithDesiredOutput
)

// SwapAmount is a swap request expressed by the exact amount on one side and
// a slippage bound on the other.
type SwapAmount struct {
	Variant SwapVariant `json:"variant"`
	// Desired is the exact input (WithDesiredInput) or output (WithDesiredOutput).
	Desired OrderVolume `json:"desired"`
	// Limit is the minimum output or the maximum input respectively. A zero
	// maximum input leaves the input unbounded.
	Limit OrderVolume `json:"limit"`
}

func DesiredInput(in, minOut OrderVolume) SwapAmount {
	return SwapAmount{Variant: WithDesiredInput, Desired: in, Limit: minOut}
}

func DesiredOutput(out, maxIn OrderVolume) SwapAmount {
	return SwapAmount{Variant: WithDesiredOutput, Desired: out, Limit: maxIn}
}

func (s SwapAmount) ValidateBasic() error {
	if !s.Desired.IsPositive() {
		return errors.New("desired amount must be positive")
	}
	if s.Limit.IsNegative() {
		return errors.New("slippage limit can't be negative")
	}
	if s.Variant != WithDesiredInput && s.Variant != WithDesiredOutput {
		return fmt.Errorf("unknown swap variant %d", s.Variant)
	}
	return nil
}

// SwapOutcome is the result of a quote or an exchange: the amount on the
// side that was not fixed by the request, plus the fee charged.
type SwapOutcome struct {
	Amount OrderVolume `json:"amount"`
	Fee    OrderVolume `json:"fee"`
}
