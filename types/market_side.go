package types

import "sort"

// PriceLevel is the total resting volume at one price.
type PriceLevel struct {
	Price  OrderPrice  `json:"price"`
	Volume OrderVolume `json:"volume"`
}

// MarketSide is the aggregated volume of one side of a book, kept sorted by
// ascending price.
type MarketSide []PriceLevel

func (m MarketSide) search(price OrderPrice) int {
	return sort.Search(len(m), func(i int) bool {
		return m[i].Price.GreaterThanOrEqual(price)
	})
}

// Get returns the volume at price.
func (m MarketSide) Get(price OrderPrice) (OrderVolume, bool) {
	i := m.search(price)
	if i < len(m) && m[i].Price.Equal(price) {
		return m[i].Volume, true
	}
	return OrderVolume{}, false
}

// Set stores volume at price, keeping the order.
func (m *MarketSide) Set(price OrderPrice, volume OrderVolume) {
	s := *m
	i := s.search(price)
	if i < len(s) && s[i].Price.Equal(price) {
		s[i].Volume = volume
		return
	}
	s = append(s, PriceLevel{})
	copy(s[i+1:], s[i:])
	s[i] = PriceLevel{Price: price, Volume: volume}
	*m = s
}

// Remove deletes the level at price if present.
func (m *MarketSide) Remove(price OrderPrice) {
	s := *m
	i := s.search(price)
	if i < len(s) && s[i].Price.Equal(price) {
		*m = append(s[:i], s[i+1:]...)
	}
}

// Clone returns a copy that shares nothing with m.
func (m MarketSide) Clone() MarketSide {
	if m == nil {
		return nil
	}
	out := make(MarketSide, len(m))
	copy(out, m)
	return out
}

// Best returns the best level for the side the orders were placed on: the
// highest bid or the lowest ask.
func (m MarketSide) Best(side Side) (PriceLevel, bool) {
	if len(m) == 0 {
		return PriceLevel{}, false
	}
	if side == Buy {
		return m[len(m)-1], true
	}
	return m[0], true
}

// Levels returns the levels in matching priority for orders resting on
// side: bids from the highest price, asks from the lowest.
func (m MarketSide) Levels(side Side) []PriceLevel {
	out := make([]PriceLevel, len(m))
	if side == Buy {
		for i := range m {
			out[i] = m[len(m)-1-i]
		}
		return out
	}
	copy(out, m)
	return out
}

// Total returns the sum of all volumes.
func (m MarketSide) Total() OrderVolume {
	var total OrderVolume
	for _, l := range m {
		total = total.Add(l.Volume)
	}
	return total
}
