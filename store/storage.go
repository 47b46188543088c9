package store

import (
	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

// StorageLayer reads and writes the persistent maps directly. There is no
// buffering and no commit step.
type StorageLayer struct {
	dataLayer
}

var _ DataLayer = (*StorageLayer)(nil)

// NewStorageLayer returns a DataLayer working directly on db.
func NewStorageLayer(db kv.Store, limits Limits) *StorageLayer {
	return &StorageLayer{dataLayer{recs: kvRecords{db: db}, limits: limits}}
}

type kvRecords struct {
	db kv.Store
}

func (r kvRecords) order(id types.OrderBookID, orderID types.OrderID) (types.LimitOrder, bool, error) {
	var order types.LimitOrder
	ok, err := load(r.db, limitOrderKey(id, orderID), &order)
	return order, ok, err
}

func (r kvRecords) setOrder(id types.OrderBookID, order types.LimitOrder) error {
	return save(r.db, limitOrderKey(id, order.ID), order)
}

func (r kvRecords) removeOrder(id types.OrderBookID, orderID types.OrderID) error {
	return r.db.Delete(limitOrderKey(id, orderID))
}

func (r kvRecords) bucket(side types.Side, id types.OrderBookID, price types.OrderPrice) ([]types.OrderID, error) {
	var ids []types.OrderID
	_, err := load(r.db, priceKey(side, id, price), &ids)
	return ids, err
}

func (r kvRecords) setBucket(side types.Side, id types.OrderBookID, price types.OrderPrice, ids []types.OrderID) error {
	return setOrRemove(r.db, priceKey(side, id, price), len(ids) == 0, ids)
}

func (r kvRecords) aggregated(side types.Side, id types.OrderBookID) (types.MarketSide, error) {
	var m types.MarketSide
	_, err := load(r.db, aggregatedKey(side, id), &m)
	return m, err
}

func (r kvRecords) setAggregated(side types.Side, id types.OrderBookID, m types.MarketSide) error {
	return setOrRemove(r.db, aggregatedKey(side, id), len(m) == 0, m)
}

func (r kvRecords) userOrders(account types.AccountID, id types.OrderBookID) ([]types.OrderID, error) {
	var ids []types.OrderID
	_, err := load(r.db, userOrdersKey(account, id), &ids)
	return ids, err
}

func (r kvRecords) setUserOrders(account types.AccountID, id types.OrderBookID, ids []types.OrderID) error {
	return setOrRemove(r.db, userOrdersKey(account, id), len(ids) == 0, ids)
}

func setOrRemove(db kv.Store, key []byte, empty bool, v interface{}) error {
	if empty {
		return db.Delete(key)
	}
	return save(db, key, v)
}
