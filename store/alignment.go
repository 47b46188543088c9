package store

import (
	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
)

// AlignmentCursor tracks a book whose resting orders are being aligned to
// new attributes. Every order with an id up to Last has been visited.
type AlignmentCursor struct {
	OrderBookID types.OrderBookID `json:"order_book_id"`
	Last        types.OrderID     `json:"last"`
}

// GetAlignmentCursors returns the cursors of all books being aligned, in the
// order the alignments were requested.
func GetAlignmentCursors(db kv.Store) ([]AlignmentCursor, error) {
	var cursors []AlignmentCursor
	_, err := load(db, alignmentCursorsKey(), &cursors)
	return cursors, err
}

// SetAlignmentCursors replaces the cursors. An empty list removes the record.
func SetAlignmentCursors(db kv.Store, cursors []AlignmentCursor) error {
	return setOrRemove(db, alignmentCursorsKey(), len(cursors) == 0, cursors)
}

// GetAlignmentCursor returns the cursor of one book, if it is being aligned.
func GetAlignmentCursor(db kv.Store, id types.OrderBookID) (AlignmentCursor, bool, error) {
	cursors, err := GetAlignmentCursors(db)
	if err != nil {
		return AlignmentCursor{}, false, err
	}
	for _, c := range cursors {
		if c.OrderBookID == id {
			return c, true, nil
		}
	}
	return AlignmentCursor{}, false, nil
}
