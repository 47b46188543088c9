package types

import (
	"errors"
	"fmt"
)

type (
	DEXID     uint32
	AssetID   string
	AccountID string
	OrderID   uint64
)

// OrderBookID identifies one market. Prices are expressed in Quote per one
// unit of Base.
type OrderBookID struct {
	DEXID DEXID   `json:"dex_id"`
	Base  AssetID `json:"base"`
	Quote AssetID `json:"quote"`
}

func (id OrderBookID) String() string {
	return fmt.Sprintf("%d/%s/%s", id.DEXID, id.Base, id.Quote)
}

// ValidateBasic performs stateless checks.
func (id OrderBookID) ValidateBasic() error {
	if id.Base == "" || id.Quote == "" {
		return errors.New("base and quote assets must be present")
	}
	if id.Base == id.Quote {
		return ErrForbiddenToCreateOrderBookWithSameAssets
	}
	return nil
}

// Side is the direction of an order from the owner's point of view.
type Side uint8

const (
	Buy Side = iota
	Sell
)

// Switched returns the opposite side.
func (s Side) Switched() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "buy":
		*s = Buy
	case "sell":
		*s = Sell
	default:
		return fmt.Errorf("unknown side %q", text)
	}
	return nil
}

// MarketRole is the role of an order in a deal.
type MarketRole uint8

const (
	Maker MarketRole = iota
	Taker
)
