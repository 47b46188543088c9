package orderbook

import (
	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

// Locker reserves liquidity of an account for an order book.
type Locker interface {
	LockLiquidity(db kv.Store, account types.AccountID, id types.OrderBookID, asset types.AssetID, amount types.OrderVolume) error
}

// Unlocker releases liquidity reserved by an order book to an account.
type Unlocker interface {
	UnlockLiquidity(db kv.Store, account types.AccountID, id types.OrderBookID, asset types.AssetID, amount types.OrderVolume) error
}

// BalanceReader reports spendable balances.
type BalanceReader interface {
	FreeBalance(db kv.Store, account types.AccountID, asset types.AssetID) (types.OrderVolume, error)
}

// Bank is the ledger capability the module settles payments through.
type Bank interface {
	Locker
	Unlocker
	BalanceReader
}

// AssetRegistry tells whether an asset exists and is divisible.
type AssetRegistry interface {
	AssetInfo(id types.AssetID) (divisible bool, ok bool)
}

// DEXRegistry resolves a dex to the asset its books are priced in.
type DEXRegistry interface {
	BaseAsset(dex types.DEXID) (types.AssetID, bool)
}

// Authority gates the administrative operations.
type Authority interface {
	IsAuthorized(account types.AccountID) bool
}

// AuthorityFunc adapts a function to the Authority interface.
type AuthorityFunc func(account types.AccountID) bool

func (f AuthorityFunc) IsAuthorized(account types.AccountID) bool {
	return f(account)
}
