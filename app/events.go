package app

import (
	abcitypes "github.com/tendermint/tendermint/abci/types"

	"github.com/tendermint/orderbook/types"
)

// indexedKeys are the attributes Tendermint indexes for event queries.
var indexedKeys = map[string]bool{
	"order_book_id": true,
	"order_id":      true,
	"owner":         true,
}

func toABCIEvents(events []types.Event) []abcitypes.Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]abcitypes.Event, 0, len(events))
	for _, e := range events {
		attrs := make([]abcitypes.EventAttribute, 0, len(e.Attributes)+1)
		attrs = append(attrs, abcitypes.EventAttribute{
			Key:   []byte("order_book_id"),
			Value: []byte(e.OrderBookID.String()),
			Index: true,
		})
		for _, a := range e.Attributes {
			attrs = append(attrs, abcitypes.EventAttribute{
				Key:   []byte(a.Key),
				Value: []byte(a.Value),
				Index: indexedKeys[a.Key],
			})
		}
		out = append(out, abcitypes.Event{Type: string(e.Type), Attributes: attrs})
	}
	return out
}
