package store

import (
	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

// Expiration is one entry of the expiration agenda.
type Expiration struct {
	OrderBookID types.OrderBookID `json:"order_book_id"`
	OrderID     types.OrderID     `json:"order_id"`
}

// GetAgenda returns the expirations scheduled for block.
func GetAgenda(db kv.Store, block int64) ([]Expiration, error) {
	var agenda []Expiration
	_, err := load(db, agendaKey(block), &agenda)
	return agenda, err
}

// SetAgenda replaces the expirations scheduled for block. An empty agenda
// removes the record.
func SetAgenda(db kv.Store, block int64, agenda []Expiration) error {
	return setOrRemove(db, agendaKey(block), len(agenda) == 0, agenda)
}

// GetIncompleteExpirationsSince returns the first block whose agenda has
// not been fully serviced, if any.
func GetIncompleteExpirationsSince(db kv.Store) (int64, bool, error) {
	var block int64
	ok, err := load(db, incompleteExpirationsKey(), &block)
	return block, ok, err
}

func SetIncompleteExpirationsSince(db kv.Store, block int64) error {
	return save(db, incompleteExpirationsKey(), block)
}

func ClearIncompleteExpirationsSince(db kv.Store) error {
	return db.Delete(incompleteExpirationsKey())
}
