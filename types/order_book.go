package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderBookStatus gates which operations a book accepts.
type OrderBookStatus uint8

const (
	// StatusTrade allows placement, cancellation and market execution.
	StatusTrade OrderBookStatus = iota
	// StatusPlaceAndCancel allows only resting placement and cancellation.
	StatusPlaceAndCancel
	// StatusOnlyCancel allows only cancellation.
	StatusOnlyCancel
	// StatusStop forbids everything except deletion by the authority.
	StatusStop
)

var statusNames = map[OrderBookStatus]string{
	StatusTrade:          "trade",
	StatusPlaceAndCancel: "place_and_cancel",
	StatusOnlyCancel:     "only_cancel",
	StatusStop:           "stop",
}

func (s OrderBookStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OrderBookStatus(%d)", uint8(s))
}

func (s OrderBookStatus) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *OrderBookStatus) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, text)
}

func (s OrderBookStatus) AllowsTrading() bool {
	return s == StatusTrade
}

func (s OrderBookStatus) AllowsPlacement() bool {
	return s == StatusTrade || s == StatusPlaceAndCancel
}

func (s OrderBookStatus) AllowsCancellation() bool {
	return s == StatusTrade || s == StatusPlaceAndCancel || s == StatusOnlyCancel
}

// OrderBookTechStatus tracks maintenance of a book. It is independent of
// the status set by the authority.
type OrderBookTechStatus uint8

const (
	TechStatusReady OrderBookTechStatus = iota
	// TechStatusUpdating locks the book while its resting orders are aligned
	// to new attributes.
	TechStatusUpdating
)

var techStatusNames = map[OrderBookTechStatus]string{
	TechStatusReady:    "ready",
	TechStatusUpdating: "updating",
}

func (s OrderBookTechStatus) String() string {
	if name, ok := techStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OrderBookTechStatus(%d)", uint8(s))
}

func (s OrderBookTechStatus) MarshalText() ([]byte, error) {
	if _, ok := techStatusNames[s]; !ok {
		return nil, fmt.Errorf("%w: tech status %d", ErrInvalidStatus, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *OrderBookTechStatus) UnmarshalText(text []byte) error {
	for status, name := range techStatusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("%w: tech status %q", ErrInvalidStatus, text)
}

// OrderBook holds the trading attributes of one market.
type OrderBook struct {
	ID          OrderBookID         `json:"id"`
	Status      OrderBookStatus     `json:"status"`
	TechStatus  OrderBookTechStatus `json:"tech_status"`
	LastOrderID OrderID             `json:"last_order_id"`
	TickSize    OrderPrice          `json:"tick_size"`
	StepLotSize OrderVolume         `json:"step_lot_size"`
	MinLotSize  OrderVolume         `json:"min_lot_size"`
	MaxLotSize  OrderVolume         `json:"max_lot_size"`
}

func NewOrderBook(id OrderBookID, tick, step, min, max decimal.Decimal) OrderBook {
	return OrderBook{
		ID:          id,
		Status:      StatusTrade,
		TickSize:    tick,
		StepLotSize: step,
		MinLotSize:  min,
		MaxLotSize:  max,
	}
}

// DefaultOrderBook returns a book for a divisible base asset.
func DefaultOrderBook(id OrderBookID) OrderBook {
	return NewOrderBook(id,
		decimal.New(1, -5),
		decimal.New(1, -5),
		decimal.NewFromInt(1),
		decimal.NewFromInt(100000),
	)
}

// DefaultNFTOrderBook returns a book for an indivisible base asset.
func DefaultNFTOrderBook(id OrderBookID) OrderBook {
	return NewOrderBook(id,
		decimal.New(1, -5),
		decimal.NewFromInt(1),
		decimal.NewFromInt(1),
		decimal.NewFromInt(100000),
	)
}

// IsLocked reports whether the book is being aligned to new attributes.
// A locked book accepts neither placement nor trading.
func (b OrderBook) IsLocked() bool {
	return b.TechStatus != TechStatusReady
}

// NextOrderID advances the id counter and returns the new id.
func (b *OrderBook) NextOrderID() OrderID {
	b.LastOrderID++
	return b.LastOrderID
}

// AlignAmount floors amount to a multiple of the step lot size.
func (b OrderBook) AlignAmount(amount OrderVolume) OrderVolume {
	if b.StepLotSize.IsZero() {
		return amount
	}
	steps, _ := amount.QuoRem(b.StepLotSize, 0)
	return steps.Mul(b.StepLotSize)
}

// ValidateAttributes checks tick, step and lot sizes of the book.
func (b OrderBook) ValidateAttributes(params Params, divisible bool) error {
	if !b.TickSize.IsPositive() {
		return ErrInvalidTickSize
	}
	if !b.StepLotSize.IsPositive() {
		return ErrInvalidStepLotSize
	}
	if !divisible && !b.StepLotSize.Equal(b.StepLotSize.Floor()) {
		return fmt.Errorf("%w: indivisible asset requires an integral step", ErrInvalidStepLotSize)
	}
	if !b.MinLotSize.IsPositive() || !IsMultipleOf(b.MinLotSize, b.StepLotSize) {
		return ErrInvalidMinLotSize
	}
	if b.MaxLotSize.LessThan(b.MinLotSize) || !IsMultipleOf(b.MaxLotSize, b.StepLotSize) {
		return ErrInvalidMaxLotSize
	}
	// max/min must stay within the hard ratio
	if b.MaxLotSize.GreaterThan(b.MinLotSize.Mul(decimal.NewFromInt(params.HardMinMaxRatio))) {
		return fmt.Errorf("%w: max/min ratio exceeds %d", ErrInvalidMaxLotSize, params.HardMinMaxRatio)
	}
	// the smallest possible deal must stay representable
	if b.TickSize.Mul(b.StepLotSize).Exponent() < -Precision {
		return ErrTickSizeAndStepLotSizeAreTooSmall
	}
	return nil
}

// ValidateLimitOrderPrice checks price granularity.
func (b OrderBook) ValidateLimitOrderPrice(price OrderPrice) error {
	if !price.IsPositive() || !IsMultipleOf(price, b.TickSize) {
		return fmt.Errorf("%w: %s is not a multiple of tick %s", ErrInvalidLimitOrderPrice, price, b.TickSize)
	}
	return nil
}

// ValidateAmount checks amount granularity and lot bounds.
func (b OrderBook) ValidateAmount(amount OrderVolume) error {
	if !amount.IsPositive() || !IsMultipleOf(amount, b.StepLotSize) {
		return fmt.Errorf("%w: %s is not a multiple of step %s", ErrInvalidOrderAmount, amount, b.StepLotSize)
	}
	if amount.LessThan(b.MinLotSize) || amount.GreaterThan(b.MaxLotSize) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidOrderAmount, amount, b.MinLotSize, b.MaxLotSize)
	}
	return nil
}

// ValidateLimitOrder checks an order about to be placed on the book.
func (b OrderBook) ValidateLimitOrder(o LimitOrder, params Params) error {
	if err := o.ValidateBasic(params); err != nil {
		return err
	}
	if err := b.ValidateLimitOrderPrice(o.Price); err != nil {
		return err
	}
	return b.ValidateAmount(o.Amount)
}
