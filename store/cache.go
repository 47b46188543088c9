package store

import (
	"sort"

	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

// CacheLayer serves reads from an in-memory working set that is populated
// lazily from the underlying store, and buffers every write until Commit.
// Use it when an operation touches many records, e.g. matching a market
// order against many resting orders.
type CacheLayer struct {
	dataLayer
	cache *cacheRecords
}

var _ DataLayer = (*CacheLayer)(nil)

// NewCacheLayer returns a write-back DataLayer on top of db.
func NewCacheLayer(db kv.Store, limits Limits) *CacheLayer {
	c := &cacheRecords{db: db}
	c.reset()
	return &CacheLayer{
		dataLayer: dataLayer{recs: c, limits: limits},
		cache:     c,
	}
}

// Commit flushes every buffered change to the underlying store in one pass,
// in key order, and leaves the cache clean.
func (cl *CacheLayer) Commit() error {
	return cl.cache.commit()
}

// Reset drops the working set, including buffered changes.
func (cl *CacheLayer) Reset() {
	cl.cache.reset()
}

// Dirty returns the number of records waiting for Commit.
func (cl *CacheLayer) Dirty() int {
	return cl.cache.dirtyCount()
}

type cachedOrder struct {
	order   types.LimitOrder
	present bool
	dirty   bool
}

type cachedIDs struct {
	ids   []types.OrderID
	dirty bool
}

type cachedSide struct {
	side  types.MarketSide
	dirty bool
}

// cacheRecords is keyed by the storage key of each record so Commit needs
// no key reconstruction.
type cacheRecords struct {
	db         kv.Store
	orders     map[string]*cachedOrder
	buckets    map[string]*cachedIDs
	aggregates map[string]*cachedSide
	users      map[string]*cachedIDs
}

func (c *cacheRecords) reset() {
	c.orders = make(map[string]*cachedOrder)
	c.buckets = make(map[string]*cachedIDs)
	c.aggregates = make(map[string]*cachedSide)
	c.users = make(map[string]*cachedIDs)
}

func (c *cacheRecords) loadOrder(key []byte) (*cachedOrder, error) {
	if e, ok := c.orders[string(key)]; ok {
		return e, nil
	}
	e := &cachedOrder{}
	ok, err := load(c.db, key, &e.order)
	if err != nil {
		return nil, err
	}
	e.present = ok
	c.orders[string(key)] = e
	return e, nil
}

func (c *cacheRecords) order(id types.OrderBookID, orderID types.OrderID) (types.LimitOrder, bool, error) {
	e, err := c.loadOrder(limitOrderKey(id, orderID))
	if err != nil {
		return types.LimitOrder{}, false, err
	}
	return e.order, e.present, nil
}

func (c *cacheRecords) setOrder(id types.OrderBookID, order types.LimitOrder) error {
	c.orders[string(limitOrderKey(id, order.ID))] = &cachedOrder{order: order, present: true, dirty: true}
	return nil
}

func (c *cacheRecords) removeOrder(id types.OrderBookID, orderID types.OrderID) error {
	c.orders[string(limitOrderKey(id, orderID))] = &cachedOrder{dirty: true}
	return nil
}

func (c *cacheRecords) loadIDs(m map[string]*cachedIDs, key []byte) (*cachedIDs, error) {
	if e, ok := m[string(key)]; ok {
		return e, nil
	}
	e := &cachedIDs{}
	if _, err := load(c.db, key, &e.ids); err != nil {
		return nil, err
	}
	m[string(key)] = e
	return e, nil
}

func (c *cacheRecords) bucket(side types.Side, id types.OrderBookID, price types.OrderPrice) ([]types.OrderID, error) {
	e, err := c.loadIDs(c.buckets, priceKey(side, id, price))
	if err != nil {
		return nil, err
	}
	return e.ids, nil
}

func (c *cacheRecords) setBucket(side types.Side, id types.OrderBookID, price types.OrderPrice, ids []types.OrderID) error {
	c.buckets[string(priceKey(side, id, price))] = &cachedIDs{ids: ids, dirty: true}
	return nil
}

func (c *cacheRecords) aggregated(side types.Side, id types.OrderBookID) (types.MarketSide, error) {
	key := aggregatedKey(side, id)
	if e, ok := c.aggregates[string(key)]; ok {
		return e.side, nil
	}
	e := &cachedSide{}
	if _, err := load(c.db, key, &e.side); err != nil {
		return nil, err
	}
	c.aggregates[string(key)] = e
	return e.side, nil
}

func (c *cacheRecords) setAggregated(side types.Side, id types.OrderBookID, m types.MarketSide) error {
	c.aggregates[string(aggregatedKey(side, id))] = &cachedSide{side: m, dirty: true}
	return nil
}

func (c *cacheRecords) userOrders(account types.AccountID, id types.OrderBookID) ([]types.OrderID, error) {
	e, err := c.loadIDs(c.users, userOrdersKey(account, id))
	if err != nil {
		return nil, err
	}
	return e.ids, nil
}

func (c *cacheRecords) setUserOrders(account types.AccountID, id types.OrderBookID, ids []types.OrderID) error {
	c.users[string(userOrdersKey(account, id))] = &cachedIDs{ids: ids, dirty: true}
	return nil
}

func (c *cacheRecords) dirtyCount() int {
	n := 0
	for _, e := range c.orders {
		if e.dirty {
			n++
		}
	}
	for _, e := range c.buckets {
		if e.dirty {
			n++
		}
	}
	for _, e := range c.aggregates {
		if e.dirty {
			n++
		}
	}
	for _, e := range c.users {
		if e.dirty {
			n++
		}
	}
	return n
}

type pendingWrite struct {
	key   string
	value interface{}
	empty bool
}

func (c *cacheRecords) commit() error {
	var writes []pendingWrite
	for k, e := range c.orders {
		if e.dirty {
			writes = append(writes, pendingWrite{key: k, value: e.order, empty: !e.present})
		}
	}
	for k, e := range c.buckets {
		if e.dirty {
			writes = append(writes, pendingWrite{key: k, value: e.ids, empty: len(e.ids) == 0})
		}
	}
	for k, e := range c.aggregates {
		if e.dirty {
			writes = append(writes, pendingWrite{key: k, value: e.side, empty: len(e.side) == 0})
		}
	}
	for k, e := range c.users {
		if e.dirty {
			writes = append(writes, pendingWrite{key: k, value: e.ids, empty: len(e.ids) == 0})
		}
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].key < writes[j].key })

	for _, w := range writes {
		if err := setOrRemove(c.db, []byte(w.key), w.empty, w.value); err != nil {
			return err
		}
	}

	for _, e := range c.orders {
		e.dirty = false
	}
	for _, e := range c.buckets {
		e.dirty = false
	}
	for _, e := range c.aggregates {
		e.dirty = false
	}
	for _, e := range c.users {
		e.dirty = false
	}
	return nil
}
