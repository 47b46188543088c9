package types

import (
	"fmt"
	"strconv"
)

// EventType names an engine event.
type EventType string

const (
	EventOrderBookCreated       EventType = "OrderBookCreated"
	EventOrderBookUpdated       EventType = "OrderBookUpdated"
	EventOrderBookStatusChanged EventType = "OrderBookStatusChanged"
	EventOrderBookDeleted       EventType = "OrderBookDeleted"
	EventLimitOrderPlaced       EventType = "LimitOrderPlaced"
	EventLimitOrderCanceled     EventType = "LimitOrderCanceled"
	EventLimitOrderExpired      EventType = "LimitOrderExpired"
	EventLimitOrderExecuted     EventType = "LimitOrderExecuted"
	EventLimitOrderFilled       EventType = "LimitOrderFilled"
	EventLimitOrderUpdated      EventType = "LimitOrderUpdated"
	EventMarketOrderExecuted    EventType = "MarketOrderExecuted"
	EventExpirationFailure      EventType = "ExpirationFailure"
	EventAlignmentFailure       EventType = "AlignmentFailure"
)

// CancelReason tells why a limit order was canceled.
type CancelReason string

const (
	CancelReasonManual           CancelReason = "manual"
	CancelReasonAligned          CancelReason = "aligned"
	CancelReasonOrderBookDeleted CancelReason = "order_book_deleted"
)

// Event is an engine event. Attributes are ordered key/value pairs so the
// encoding is deterministic.
type Event struct {
	Type        EventType        `json:"type"`
	OrderBookID OrderBookID      `json:"order_book_id"`
	Attributes  []EventAttribute `json:"attributes,omitempty"`
}

type EventAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewEvent returns an event with attributes built from alternating
// key/value pairs.
func NewEvent(typ EventType, id OrderBookID, keyvals ...interface{}) Event {
	e := Event{Type: typ, OrderBookID: id}
	for i := 0; i+1 < len(keyvals); i += 2 {
		e.Attributes = append(e.Attributes, EventAttribute{
			Key:   fmt.Sprint(keyvals[i]),
			Value: attributeValue(keyvals[i+1]),
		})
	}
	return e
}

func attributeValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case OrderID:
		return strconv.FormatUint(uint64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Attribute returns the value of the first attribute named key.
func (e Event) Attribute(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func (e Event) String() string {
	return fmt.Sprintf("%s{%s %v}", e.Type, e.OrderBookID, e.Attributes)
}
