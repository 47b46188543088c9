package orderbook

import (
	"fmt"
	"sort"

	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

// Transfers maps an asset to the volume moved per account.
type Transfers map[types.AssetID]map[types.AccountID]types.OrderVolume

func (t Transfers) add(asset types.AssetID, account types.AccountID, amount types.OrderVolume) {
	accounts, ok := t[asset]
	if !ok {
		accounts = make(map[types.AccountID]types.OrderVolume)
		t[asset] = accounts
	}
	accounts[account] = accounts[account].Add(amount)
}

func (t Transfers) clone() Transfers {
	out := make(Transfers, len(t))
	for asset, accounts := range t {
		c := make(map[types.AccountID]types.OrderVolume, len(accounts))
		for account, amount := range accounts {
			c[account] = amount
		}
		out[asset] = c
	}
	return out
}

// Get returns the volume of asset moved for account.
func (t Transfers) Get(asset types.AssetID, account types.AccountID) types.OrderVolume {
	return t[asset][account]
}

type transfer struct {
	asset   types.AssetID
	account types.AccountID
	amount  types.OrderVolume
}

// sorted lists the non-zero transfers by asset, then account.
func (t Transfers) sorted() []transfer {
	var out []transfer
	for asset, accounts := range t {
		for account, amount := range accounts {
			if amount.IsZero() {
				continue
			}
			out = append(out, transfer{asset, account, amount})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].asset != out[j].asset {
			return out[i].asset < out[j].asset
		}
		return out[i].account < out[j].account
	})
	return out
}

// Payment is the set of balance movements of one order book operation.
type Payment struct {
	OrderBookID types.OrderBookID
	ToLock      Transfers
	ToUnlock    Transfers
}

func NewPayment(id types.OrderBookID) Payment {
	return Payment{
		OrderBookID: id,
		ToLock:      make(Transfers),
		ToUnlock:    make(Transfers),
	}
}

// Lock schedules amount of asset to be locked from account.
func (p *Payment) Lock(asset types.AssetID, account types.AccountID, amount types.OrderVolume) {
	p.ToLock.add(asset, account, amount)
}

// Unlock schedules amount of asset to be released to account.
func (p *Payment) Unlock(asset types.AssetID, account types.AccountID, amount types.OrderVolume) {
	p.ToUnlock.add(asset, account, amount)
}

// Merge adds the movements of other to p. Payments of different books can't
// be merged; p is left untouched in that case.
func (p *Payment) Merge(other Payment) error {
	if p.OrderBookID != other.OrderBookID {
		return fmt.Errorf("%w: can't merge payment of %s into %s",
			types.ErrInvalidOrderBookID, other.OrderBookID, p.OrderBookID)
	}
	for asset, accounts := range other.ToLock {
		for account, amount := range accounts {
			p.Lock(asset, account, amount)
		}
	}
	for asset, accounts := range other.ToUnlock {
		for account, amount := range accounts {
			p.Unlock(asset, account, amount)
		}
	}
	return nil
}

// Clone returns a deep copy of p.
func (p Payment) Clone() Payment {
	return Payment{
		OrderBookID: p.OrderBookID,
		ToLock:      p.ToLock.clone(),
		ToUnlock:    p.ToUnlock.clone(),
	}
}

// IsEmpty reports whether nothing would be moved.
func (p Payment) IsEmpty() bool {
	return len(p.ToLock.sorted()) == 0 && len(p.ToUnlock.sorted()) == 0
}

// Equal compares payments value-wise, ignoring zero entries.
func (p Payment) Equal(other Payment) bool {
	if p.OrderBookID != other.OrderBookID {
		return false
	}
	return transfersEqual(p.ToLock.sorted(), other.ToLock.sorted()) &&
		transfersEqual(p.ToUnlock.sorted(), other.ToUnlock.sorted())
}

func transfersEqual(a, b []transfer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].asset != b[i].asset || a[i].account != b[i].account || !a[i].amount.Equal(b[i].amount) {
			return false
		}
	}
	return true
}

// ExecuteAll performs every lock, then every unlock, in asset then account
// order. The caller discards db if an error is returned.
func (p Payment) ExecuteAll(db kv.Store, locker Locker, unlocker Unlocker) error {
	for _, t := range p.ToLock.sorted() {
		if err := locker.LockLiquidity(db, t.account, p.OrderBookID, t.asset, t.amount); err != nil {
			return fmt.Errorf("lock %s %s of %s: %w", t.amount, t.asset, t.account, err)
		}
	}
	for _, t := range p.ToUnlock.sorted() {
		if err := unlocker.UnlockLiquidity(db, t.account, p.OrderBookID, t.asset, t.amount); err != nil {
			return fmt.Errorf("unlock %s %s to %s: %w", t.amount, t.asset, t.account, err)
		}
	}
	return nil
}
