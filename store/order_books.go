package store

import (
	"fmt"

	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

// GetOrderBook loads the order book record. It reports false if the book
// does not exist.
func GetOrderBook(db kv.Store, id types.OrderBookID) (types.OrderBook, bool, error) {
	var book types.OrderBook
	ok, err := load(db, OrderBookKey(id), &book)
	return book, ok, err
}

// MustGetOrderBook loads the order book record or fails with
// ErrUnknownOrderBook.
func MustGetOrderBook(db kv.Store, id types.OrderBookID) (types.OrderBook, error) {
	book, ok, err := GetOrderBook(db, id)
	if err != nil {
		return types.OrderBook{}, err
	}
	if !ok {
		return types.OrderBook{}, fmt.Errorf("%w: %s", types.ErrUnknownOrderBook, id)
	}
	return book, nil
}

func SetOrderBook(db kv.Store, book types.OrderBook) error {
	return save(db, OrderBookKey(book.ID), book)
}

func DeleteOrderBook(db kv.Store, id types.OrderBookID) error {
	return db.Delete(OrderBookKey(id))
}

// ListOrderBooks returns every order book committed to db in key order.
func ListOrderBooks(db dbm.DB) ([]types.OrderBook, error) {
	it, err := dbm.IteratePrefix(db, OrderBookPrefix())
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var books []types.OrderBook
	for ; it.Valid(); it.Next() {
		var book types.OrderBook
		if err := cdc.Unmarshal(it.Value(), &book); err != nil {
			panic(fmt.Sprintf("store: data has been corrupted or its spec has changed: %v", err))
		}
		books = append(books, book)
	}
	return books, it.Error()
}
