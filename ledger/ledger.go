// Package ledger keeps account balances and the liquidity locked in order
// books. Balances live in the same store as the order indices, so a lock or
// unlock is discarded together with the operation that failed.
package ledger

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

var cdc = jsoniter.ConfigCompatibleWithStandardLibrary

// Ledger moves funds between free account balances and per-book escrow.
type Ledger struct{}

func New() Ledger {
	return Ledger{}
}

func getVolume(db kv.Store, key []byte) (decimal.Decimal, error) {
	bz, err := db.Get(key)
	if err != nil {
		return decimal.Zero, err
	}
	if len(bz) == 0 {
		return decimal.Zero, nil
	}
	var v decimal.Decimal
	if err := cdc.Unmarshal(bz, &v); err != nil {
		panic(fmt.Sprintf("ledger: data has been corrupted: %v", err))
	}
	return v, nil
}

func setVolume(db kv.Store, key []byte, v decimal.Decimal) error {
	if v.IsZero() {
		return db.Delete(key)
	}
	bz, err := cdc.Marshal(v)
	if err != nil {
		return err
	}
	return db.Set(key, bz)
}

// FreeBalance returns the spendable balance of account in asset.
func (Ledger) FreeBalance(db kv.Store, account types.AccountID, asset types.AssetID) (types.OrderVolume, error) {
	return getVolume(db, store.BalanceKey(account, asset))
}

// Escrow returns the liquidity of asset locked in the book.
func (Ledger) Escrow(db kv.Store, id types.OrderBookID, asset types.AssetID) (types.OrderVolume, error) {
	return getVolume(db, store.EscrowKey(id, asset))
}

// Mint credits account with amount of asset. It is only used at genesis.
func (Ledger) Mint(db kv.Store, account types.AccountID, asset types.AssetID, amount types.OrderVolume) error {
	if !amount.IsPositive() {
		return fmt.Errorf("mint amount must be positive, got %s", amount)
	}
	key := store.BalanceKey(account, asset)
	balance, err := getVolume(db, key)
	if err != nil {
		return err
	}
	return setVolume(db, key, balance.Add(amount))
}

// LockLiquidity moves amount of asset from the free balance of account into
// the escrow of the book.
func (Ledger) LockLiquidity(
	db kv.Store,
	account types.AccountID,
	id types.OrderBookID,
	asset types.AssetID,
	amount types.OrderVolume,
) error {
	if amount.IsNegative() {
		return fmt.Errorf("lock amount can't be negative, got %s", amount)
	}
	balanceKey, escrowKey := store.BalanceKey(account, asset), store.EscrowKey(id, asset)
	balance, err := getVolume(db, balanceKey)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s", types.ErrInsufficientBalance, account, balance, asset, amount)
	}
	escrow, err := getVolume(db, escrowKey)
	if err != nil {
		return err
	}
	if err := setVolume(db, balanceKey, balance.Sub(amount)); err != nil {
		return err
	}
	return setVolume(db, escrowKey, escrow.Add(amount))
}

// UnlockLiquidity moves amount of asset from the escrow of the book to the
// free balance of account.
func (Ledger) UnlockLiquidity(
	db kv.Store,
	account types.AccountID,
	id types.OrderBookID,
	asset types.AssetID,
	amount types.OrderVolume,
) error {
	if amount.IsNegative() {
		return fmt.Errorf("unlock amount can't be negative, got %s", amount)
	}
	balanceKey, escrowKey := store.BalanceKey(account, asset), store.EscrowKey(id, asset)
	escrow, err := getVolume(db, escrowKey)
	if err != nil {
		return err
	}
	if escrow.LessThan(amount) {
		return fmt.Errorf("%w: book %s holds %s %s, needs %s", types.ErrInsufficientEscrow, id, escrow, asset, amount)
	}
	balance, err := getVolume(db, balanceKey)
	if err != nil {
		return err
	}
	if err := setVolume(db, escrowKey, escrow.Sub(amount)); err != nil {
		return err
	}
	return setVolume(db, balanceKey, balance.Add(amount))
}
