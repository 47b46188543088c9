package types

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places kept by divisions.
const Precision = 18

// OrderPrice is a price in quote asset per one unit of base asset.
type OrderPrice = decimal.Decimal

// OrderVolume is a plain quantity of some asset.
type OrderVolume = decimal.Decimal

// AmountKind tags an OrderAmount with the asset it is denominated in.
type AmountKind uint8

const (
	KindBase AmountKind = iota
	KindQuote
)

func (k AmountKind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindQuote:
		return "quote"
	default:
		return fmt.Sprintf("AmountKind(%d)", uint8(k))
	}
}

// OrderAmount is a volume denominated in either the base or the quote asset
// of an order book. Arithmetic is only defined between amounts of the same
// kind.
type OrderAmount struct {
	kind  AmountKind
	value OrderVolume
}

// Base returns a base-denominated amount.
func Base(v OrderVolume) OrderAmount {
	return OrderAmount{kind: KindBase, value: v}
}

// Quote returns a quote-denominated amount.
func Quote(v OrderVolume) OrderAmount {
	return OrderAmount{kind: KindQuote, value: v}
}

func (a OrderAmount) Kind() AmountKind   { return a.kind }
func (a OrderAmount) Value() OrderVolume { return a.value }
func (a OrderAmount) IsBase() bool       { return a.kind == KindBase }
func (a OrderAmount) IsQuote() bool      { return a.kind == KindQuote }

// IsSame reports whether both amounts have the same kind.
func (a OrderAmount) IsSame(other OrderAmount) bool {
	return a.kind == other.kind
}

// CopyType returns v tagged with the kind of a.
func (a OrderAmount) CopyType(v OrderVolume) OrderAmount {
	return OrderAmount{kind: a.kind, value: v}
}

// AssociatedAsset returns the asset of the book the amount is denominated in.
func (a OrderAmount) AssociatedAsset(id OrderBookID) AssetID {
	if a.IsBase() {
		return id.Base
	}
	return id.Quote
}

func (a OrderAmount) Add(other OrderAmount) (OrderAmount, error) {
	if !a.IsSame(other) {
		return OrderAmount{}, fmt.Errorf("%w: %s + %s", ErrAmountVariantMismatch, a.kind, other.kind)
	}
	return a.CopyType(a.value.Add(other.value)), nil
}

func (a OrderAmount) Sub(other OrderAmount) (OrderAmount, error) {
	if !a.IsSame(other) {
		return OrderAmount{}, fmt.Errorf("%w: %s - %s", ErrAmountVariantMismatch, a.kind, other.kind)
	}
	return a.CopyType(a.value.Sub(other.value)), nil
}

// Equal reports whether both amounts have the same kind and value.
func (a OrderAmount) Equal(other OrderAmount) bool {
	return a.IsSame(other) && a.value.Equal(other.value)
}

func (a OrderAmount) String() string {
	return fmt.Sprintf("%s(%s)", a.kind, a.value)
}

type orderAmountJSON struct {
	Kind  string      `json:"kind"`
	Value OrderVolume `json:"value"`
}

func (a OrderAmount) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(orderAmountJSON{Kind: a.kind.String(), Value: a.value})
}

func (a *OrderAmount) UnmarshalJSON(bz []byte) error {
	var aux orderAmountJSON
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(bz, &aux); err != nil {
		return err
	}
	switch aux.Kind {
	case "base":
		*a = Base(aux.Value)
	case "quote":
		*a = Quote(aux.Value)
	default:
		return fmt.Errorf("unknown amount kind %q", aux.Kind)
	}
	return nil
}

// AddOptional sums two optional amounts. A nil operand is the identity.
func AddOptional(a, b *OrderAmount) (*OrderAmount, error) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case a == nil:
		c := *b
		return &c, nil
	case b == nil:
		c := *a
		return &c, nil
	}
	sum, err := a.Add(*b)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// Truncate cuts v to Precision decimal places.
func Truncate(v decimal.Decimal) decimal.Decimal {
	return v.Truncate(Precision)
}

// Div divides a by b keeping Precision decimal places, truncating the rest.
func Div(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, Precision)
	return q
}

// IsMultipleOf reports whether v is an integer multiple of step.
func IsMultipleOf(v, step decimal.Decimal) bool {
	if step.IsZero() {
		return false
	}
	return v.Mod(step).IsZero()
}
