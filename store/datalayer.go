package store

import (
	"fmt"

	"github.com/tendermint/orderbook/types"
)

// DataLayer is the storage capability the matching engine works through.
// It owns every order index: LimitOrders, Bids/Asks (price -> FIFO ids),
// AggregatedBids/Asks (price -> volume) and UserLimitOrders.
//
// Price buckets, aggregated levels and user lists are never stored empty.
type DataLayer interface {
	GetLimitOrder(id types.OrderBookID, orderID types.OrderID) (types.LimitOrder, error)
	InsertLimitOrder(id types.OrderBookID, order types.LimitOrder) error
	DeleteLimitOrder(id types.OrderBookID, orderID types.OrderID) error
	// UpdateLimitOrderAmount can only shrink an order. A zero amount deletes it.
	UpdateLimitOrderAmount(id types.OrderBookID, orderID types.OrderID, newAmount types.OrderVolume) error

	GetBids(id types.OrderBookID, price types.OrderPrice) ([]types.OrderID, error)
	GetAsks(id types.OrderBookID, price types.OrderPrice) ([]types.OrderID, error)
	GetAggregatedBids(id types.OrderBookID) (types.MarketSide, error)
	GetAggregatedAsks(id types.OrderBookID) (types.MarketSide, error)
	GetUserLimitOrders(account types.AccountID, id types.OrderBookID) ([]types.OrderID, error)
}

// Limits bound the size of the order indices.
type Limits struct {
	MaxLimitOrdersForPrice      int
	MaxOpenedLimitOrdersPerUser int
	MaxSidePriceCount           int
}

// LimitsFromParams extracts the index limits from the engine params.
func LimitsFromParams(p types.Params) Limits {
	return Limits{
		MaxLimitOrdersForPrice:      p.MaxLimitOrdersForPrice,
		MaxOpenedLimitOrdersPerUser: p.MaxOpenedLimitOrdersPerUser,
		MaxSidePriceCount:           p.MaxSidePriceCount,
	}
}

// records is the typed record access both layers are built on. Setting an
// empty list or side removes the record.
type records interface {
	order(id types.OrderBookID, orderID types.OrderID) (types.LimitOrder, bool, error)
	setOrder(id types.OrderBookID, order types.LimitOrder) error
	removeOrder(id types.OrderBookID, orderID types.OrderID) error

	bucket(side types.Side, id types.OrderBookID, price types.OrderPrice) ([]types.OrderID, error)
	setBucket(side types.Side, id types.OrderBookID, price types.OrderPrice, ids []types.OrderID) error

	aggregated(side types.Side, id types.OrderBookID) (types.MarketSide, error)
	setAggregated(side types.Side, id types.OrderBookID, m types.MarketSide) error

	userOrders(account types.AccountID, id types.OrderBookID) ([]types.OrderID, error)
	setUserOrders(account types.AccountID, id types.OrderBookID, ids []types.OrderID) error
}

// dataLayer implements the index maintenance on top of records. Every
// mutation reads and checks everything it needs before the first write.
type dataLayer struct {
	recs   records
	limits Limits
}

func (dl *dataLayer) GetLimitOrder(id types.OrderBookID, orderID types.OrderID) (types.LimitOrder, error) {
	order, ok, err := dl.recs.order(id, orderID)
	if err != nil {
		return types.LimitOrder{}, err
	}
	if !ok {
		return types.LimitOrder{}, fmt.Errorf("%w: %d in %s", types.ErrUnknownLimitOrder, orderID, id)
	}
	return order, nil
}

func (dl *dataLayer) InsertLimitOrder(id types.OrderBookID, order types.LimitOrder) error {
	_, exists, err := dl.recs.order(id, order.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %d in %s", types.ErrLimitOrderAlreadyExists, order.ID, id)
	}

	bucket, err := dl.recs.bucket(order.Side, id, order.Price)
	if err != nil {
		return err
	}
	if len(bucket) >= dl.limits.MaxLimitOrdersForPrice {
		return fmt.Errorf("%w: price %s is full", types.ErrLimitOrderStorageOverflow, order.Price)
	}

	agg, err := dl.recs.aggregated(order.Side, id)
	if err != nil {
		return err
	}
	volume, levelExists := agg.Get(order.Price)
	if !levelExists && len(agg) >= dl.limits.MaxSidePriceCount {
		return fmt.Errorf("%w: %s side has max count of prices", types.ErrLimitOrderStorageOverflow, order.Side)
	}

	user, err := dl.recs.userOrders(order.Owner, id)
	if err != nil {
		return err
	}
	if len(user) >= dl.limits.MaxOpenedLimitOrdersPerUser {
		return fmt.Errorf("%w: %s has max count of orders", types.ErrLimitOrderStorageOverflow, order.Owner)
	}

	if err := dl.recs.setOrder(id, order); err != nil {
		return err
	}
	if err := dl.recs.setBucket(order.Side, id, order.Price, appendID(bucket, order.ID)); err != nil {
		return err
	}
	agg = agg.Clone()
	agg.Set(order.Price, volume.Add(order.Amount))
	if err := dl.recs.setAggregated(order.Side, id, agg); err != nil {
		return err
	}
	return dl.recs.setUserOrders(order.Owner, id, appendID(user, order.ID))
}

func (dl *dataLayer) DeleteLimitOrder(id types.OrderBookID, orderID types.OrderID) error {
	order, err := dl.GetLimitOrder(id, orderID)
	if err != nil {
		return err
	}

	bucket, err := dl.recs.bucket(order.Side, id, order.Price)
	if err != nil {
		return err
	}
	bucket, ok := removeID(bucket, orderID)
	if !ok {
		return fmt.Errorf("%w: %d is not in the %s price bucket", types.ErrDeleteLimitOrderError, orderID, order.Price)
	}

	agg, err := dl.recs.aggregated(order.Side, id)
	if err != nil {
		return err
	}
	volume, ok := agg.Get(order.Price)
	if !ok {
		return fmt.Errorf("%w: no aggregated volume at %s", types.ErrDeleteLimitOrderError, order.Price)
	}
	agg = agg.Clone()
	if left := volume.Sub(order.Amount); left.IsPositive() {
		agg.Set(order.Price, left)
	} else {
		agg.Remove(order.Price)
	}

	user, err := dl.recs.userOrders(order.Owner, id)
	if err != nil {
		return err
	}
	user, ok = removeID(user, orderID)
	if !ok {
		return fmt.Errorf("%w: %d is not in the orders of %s", types.ErrDeleteLimitOrderError, orderID, order.Owner)
	}

	if err := dl.recs.removeOrder(id, orderID); err != nil {
		return err
	}
	if err := dl.recs.setBucket(order.Side, id, order.Price, bucket); err != nil {
		return err
	}
	if err := dl.recs.setAggregated(order.Side, id, agg); err != nil {
		return err
	}
	return dl.recs.setUserOrders(order.Owner, id, user)
}

func (dl *dataLayer) UpdateLimitOrderAmount(id types.OrderBookID, orderID types.OrderID, newAmount types.OrderVolume) error {
	order, err := dl.GetLimitOrder(id, orderID)
	if err != nil {
		return err
	}
	switch {
	case newAmount.Equal(order.Amount):
		return nil
	case newAmount.GreaterThan(order.Amount), newAmount.IsNegative():
		return fmt.Errorf("%w: %d from %s to %s", types.ErrUpdateLimitOrderError, orderID, order.Amount, newAmount)
	case newAmount.IsZero():
		return dl.DeleteLimitOrder(id, orderID)
	}

	agg, err := dl.recs.aggregated(order.Side, id)
	if err != nil {
		return err
	}
	volume, ok := agg.Get(order.Price)
	if !ok {
		return fmt.Errorf("%w: no aggregated volume at %s", types.ErrUpdateLimitOrderError, order.Price)
	}
	delta := order.Amount.Sub(newAmount)
	agg = agg.Clone()
	if left := volume.Sub(delta); left.IsPositive() {
		agg.Set(order.Price, left)
	} else {
		agg.Remove(order.Price)
	}

	order.Amount = newAmount
	if err := dl.recs.setOrder(id, order); err != nil {
		return err
	}
	return dl.recs.setAggregated(order.Side, id, agg)
}

func (dl *dataLayer) GetBids(id types.OrderBookID, price types.OrderPrice) ([]types.OrderID, error) {
	return dl.recs.bucket(types.Buy, id, price)
}

func (dl *dataLayer) GetAsks(id types.OrderBookID, price types.OrderPrice) ([]types.OrderID, error) {
	return dl.recs.bucket(types.Sell, id, price)
}

func (dl *dataLayer) GetAggregatedBids(id types.OrderBookID) (types.MarketSide, error) {
	m, err := dl.recs.aggregated(types.Buy, id)
	return m.Clone(), err
}

func (dl *dataLayer) GetAggregatedAsks(id types.OrderBookID) (types.MarketSide, error) {
	m, err := dl.recs.aggregated(types.Sell, id)
	return m.Clone(), err
}

func (dl *dataLayer) GetUserLimitOrders(account types.AccountID, id types.OrderBookID) ([]types.OrderID, error) {
	return dl.recs.userOrders(account, id)
}

func appendID(ids []types.OrderID, id types.OrderID) []types.OrderID {
	out := make([]types.OrderID, len(ids), len(ids)+1)
	copy(out, ids)
	return append(out, id)
}

func removeID(ids []types.OrderID, id types.OrderID) ([]types.OrderID, bool) {
	for i, x := range ids {
		if x == id {
			out := make([]types.OrderID, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			return append(out, ids[i+1:]...), true
		}
	}
	return ids, false
}

// GetLimitOrdersByPrice returns the FIFO ids resting at price on side.
func GetLimitOrdersByPrice(dl DataLayer, side types.Side, id types.OrderBookID, price types.OrderPrice) ([]types.OrderID, error) {
	if side == types.Buy {
		return dl.GetBids(id, price)
	}
	return dl.GetAsks(id, price)
}

// GetAggregated returns the aggregated volume of side.
func GetAggregated(dl DataLayer, side types.Side, id types.OrderBookID) (types.MarketSide, error) {
	if side == types.Buy {
		return dl.GetAggregatedBids(id)
	}
	return dl.GetAggregatedAsks(id)
}

// BestBid returns the highest bid level.
func BestBid(dl DataLayer, id types.OrderBookID) (types.PriceLevel, bool, error) {
	bids, err := dl.GetAggregatedBids(id)
	if err != nil {
		return types.PriceLevel{}, false, err
	}
	level, ok := bids.Best(types.Buy)
	return level, ok, nil
}

// BestAsk returns the lowest ask level.
func BestAsk(dl DataLayer, id types.OrderBookID) (types.PriceLevel, bool, error) {
	asks, err := dl.GetAggregatedAsks(id)
	if err != nil {
		return types.PriceLevel{}, false, err
	}
	level, ok := asks.Best(types.Sell)
	return level, ok, nil
}
