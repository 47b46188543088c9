package store

import (
	"fmt"

	"github.com/google/orderedcode"

	"github.com/tendermint/orderbook/types"
)

// key prefixes
const (
	prefixOrderBook = int64(iota)
	prefixLimitOrder
	prefixBids
	prefixAsks
	prefixAggregatedBids
	prefixAggregatedAsks
	prefixUserLimitOrders
	prefixExpirationsAgenda
	prefixIncompleteExpirationsSince
	prefixBalance
	prefixEscrow
	prefixAppState
	prefixGenesis
	prefixAlignmentCursors
)

func appendBookID(key []byte, id types.OrderBookID) []byte {
	key, err := orderedcode.Append(key, uint64(id.DEXID), string(id.Base), string(id.Quote))
	if err != nil {
		panic(err)
	}
	return key
}

func mustAppend(key []byte, items ...interface{}) []byte {
	key, err := orderedcode.Append(key, items...)
	if err != nil {
		panic(err)
	}
	return key
}

func prefix(p int64) []byte {
	return mustAppend(nil, p)
}

// OrderBookKey is the key of an order book record.
func OrderBookKey(id types.OrderBookID) []byte {
	return appendBookID(prefix(prefixOrderBook), id)
}

// OrderBookPrefix is the common prefix of all order book records.
func OrderBookPrefix() []byte {
	return prefix(prefixOrderBook)
}

func limitOrderKey(id types.OrderBookID, orderID types.OrderID) []byte {
	return mustAppend(appendBookID(prefix(prefixLimitOrder), id), uint64(orderID))
}

func priceKey(side types.Side, id types.OrderBookID, price types.OrderPrice) []byte {
	p := prefixBids
	if side == types.Sell {
		p = prefixAsks
	}
	return mustAppend(appendBookID(prefix(p), id), price.String())
}

func aggregatedKey(side types.Side, id types.OrderBookID) []byte {
	p := prefixAggregatedBids
	if side == types.Sell {
		p = prefixAggregatedAsks
	}
	return appendBookID(prefix(p), id)
}

func userOrdersKey(account types.AccountID, id types.OrderBookID) []byte {
	return appendBookID(mustAppend(prefix(prefixUserLimitOrders), string(account)), id)
}

func agendaKey(block int64) []byte {
	return mustAppend(prefix(prefixExpirationsAgenda), block)
}

func incompleteExpirationsKey() []byte {
	return prefix(prefixIncompleteExpirationsSince)
}

func alignmentCursorsKey() []byte {
	return prefix(prefixAlignmentCursors)
}

// BalanceKey is the key of the free balance of account in asset.
func BalanceKey(account types.AccountID, asset types.AssetID) []byte {
	return mustAppend(prefix(prefixBalance), string(account), string(asset))
}

// EscrowKey is the key of the liquidity locked in the book for asset.
func EscrowKey(id types.OrderBookID, asset types.AssetID) []byte {
	return mustAppend(appendBookID(prefix(prefixEscrow), id), string(asset))
}

// AppStateKey is the key of the host application state.
func AppStateKey() []byte {
	return prefix(prefixAppState)
}

// GenesisKey is the key of the genesis document the state was built from.
func GenesisKey() []byte {
	return prefix(prefixGenesis)
}

// ParseOrderBookKey decodes a key produced by OrderBookKey.
func ParseOrderBookKey(key []byte) (types.OrderBookID, error) {
	var (
		p           int64
		dex         uint64
		base, quote string
	)
	remaining, err := orderedcode.Parse(string(key), &p, &dex, &base, &quote)
	if err != nil {
		return types.OrderBookID{}, err
	}
	if remaining != "" {
		return types.OrderBookID{}, fmt.Errorf("invalid order book key, trailing %d bytes", len(remaining))
	}
	if p != prefixOrderBook {
		return types.OrderBookID{}, fmt.Errorf("invalid order book key prefix %d", p)
	}
	return types.OrderBookID{DEXID: types.DEXID(dex), Base: types.AssetID(base), Quote: types.AssetID(quote)}, nil
}
