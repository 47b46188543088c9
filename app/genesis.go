package app

import (
	"errors"
	"fmt"

	"github.com/tendermint/orderbook/ledger"
	"github.com/tendermint/orderbook/types"
)

// DefaultExpirationWeightLimit lets one block expire a full agenda of a
// block at default params.
const DefaultExpirationWeightLimit uint64 = 25_000_000

// Balance is an amount minted to an account at genesis.
type Balance struct {
	Account types.AccountID   `json:"account"`
	Asset   types.AssetID     `json:"asset"`
	Amount  types.OrderVolume `json:"amount"`
}

// Genesis is the app_state of the genesis document. Every value in it is
// consensus critical, so it is stored with the state and read back on
// restart instead of coming from node configuration.
type Genesis struct {
	Params types.Params `json:"params"`
	// ExpirationWeightLimit is the weight each block may spend on
	// expirations and order alignment.
	ExpirationWeightLimit uint64 `json:"expiration_weight_limit"`

	Assets []ledger.Asset `json:"assets"`
	DEXes  []ledger.DEX   `json:"dexes"`
	// Authorities may administer any book and cancel any order.
	Authorities []types.AccountID `json:"authorities"`

	Balances   []Balance           `json:"balances,omitempty"`
	OrderBooks []types.OrderBookID `json:"order_books,omitempty"`
}

// DefaultGenesis returns a genesis with one dex trading VAL and PSWAP
// against XOR.
func DefaultGenesis() Genesis {
	return Genesis{
		Params:                types.DefaultParams(),
		ExpirationWeightLimit: DefaultExpirationWeightLimit,
		Assets: []ledger.Asset{
			{ID: "XOR", Divisible: true},
			{ID: "VAL", Divisible: true},
			{ID: "PSWAP", Divisible: true},
		},
		DEXes: []ledger.DEX{
			{ID: 0, BaseAsset: "XOR"},
		},
		Authorities: []types.AccountID{"admin"},
		OrderBooks: []types.OrderBookID{
			{DEXID: 0, Base: "VAL", Quote: "XOR"},
			{DEXID: 0, Base: "PSWAP", Quote: "XOR"},
		},
	}
}

// GenesisFromJSON parses and validates an app_state.
func GenesisFromJSON(bz []byte) (Genesis, error) {
	var g Genesis
	if err := cdc.Unmarshal(bz, &g); err != nil {
		return Genesis{}, fmt.Errorf("failed to parse genesis: %w", err)
	}
	if err := g.ValidateBasic(); err != nil {
		return Genesis{}, fmt.Errorf("invalid genesis: %w", err)
	}
	return g, nil
}

// JSON returns the canonical encoding of g.
func (g Genesis) JSON() ([]byte, error) {
	return cdc.MarshalIndent(g, "", "  ")
}

// ValidateBasic performs basic validation (checking param bounds etc.) and
// returns an error if any check fails.
func (g Genesis) ValidateBasic() error {
	if err := g.Params.ValidateBasic(); err != nil {
		return fmt.Errorf("error in params: %w", err)
	}
	if g.ExpirationWeightLimit == 0 {
		return errors.New("expiration_weight_limit can't be zero")
	}
	registry, err := g.Registry()
	if err != nil {
		return err
	}
	for _, a := range g.Authorities {
		if a == "" {
			return errors.New("authority can't be empty")
		}
	}
	for i, b := range g.Balances {
		if b.Account == "" {
			return fmt.Errorf("balance #%d: account can't be empty", i)
		}
		if _, ok := registry.AssetInfo(b.Asset); !ok {
			return fmt.Errorf("balance #%d: asset %s is not registered", i, b.Asset)
		}
		if !b.Amount.IsPositive() {
			return fmt.Errorf("balance #%d: amount must be positive, got %s", i, b.Amount)
		}
	}
	if len(g.OrderBooks) > 0 && len(g.Authorities) == 0 {
		return errors.New("order books at genesis need an authority to create them")
	}
	return nil
}

// Registry returns the asset and dex registry of g.
func (g Genesis) Registry() (*ledger.Registry, error) {
	return ledger.NewRegistry(g.Assets, g.DEXes)
}

// authority authorizes the accounts listed in the genesis.
type authority map[types.AccountID]struct{}

func newAuthority(accounts []types.AccountID) authority {
	a := make(authority, len(accounts))
	for _, account := range accounts {
		a[account] = struct{}{}
	}
	return a
}

func (a authority) IsAuthorized(account types.AccountID) bool {
	_, ok := a[account]
	return ok
}
