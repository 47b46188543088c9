package app

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/tendermint/orderbook/orderbook"
	"github.com/tendermint/orderbook/types"
)

var cdc = jsoniter.ConfigCompatibleWithStandardLibrary

// Msg is a transaction payload.
type Msg interface {
	Type() string
	// ValidateBasic performs the checks that need no state.
	ValidateBasic() error

	// execute runs the message and returns the response data.
	execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error)
}

// Message type names.
const (
	TypePlaceLimitOrder       = "place_limit_order"
	TypeCancelLimitOrder      = "cancel_limit_order"
	TypeCancelLimitOrderBatch = "cancel_limit_orders_batch"
	TypeExecuteMarketOrder    = "execute_market_order"
	TypeExchange              = "exchange"
	TypeCreateOrderBook       = "create_orderbook"
	TypeUpdateOrderBook       = "update_orderbook"
	TypeChangeOrderBookStatus = "change_orderbook_status"
	TypeDeleteOrderBook       = "delete_orderbook"
)

var msgTypes = map[string]func() Msg{
	TypePlaceLimitOrder:       func() Msg { return &MsgPlaceLimitOrder{} },
	TypeCancelLimitOrder:      func() Msg { return &MsgCancelLimitOrder{} },
	TypeCancelLimitOrderBatch: func() Msg { return &MsgCancelLimitOrdersBatch{} },
	TypeExecuteMarketOrder:    func() Msg { return &MsgExecuteMarketOrder{} },
	TypeExchange:              func() Msg { return &MsgExchange{} },
	TypeCreateOrderBook:       func() Msg { return &MsgCreateOrderBook{} },
	TypeUpdateOrderBook:       func() Msg { return &MsgUpdateOrderBook{} },
	TypeChangeOrderBookStatus: func() Msg { return &MsgChangeOrderBookStatus{} },
	TypeDeleteOrderBook:       func() Msg { return &MsgDeleteOrderBook{} },
}

type envelope struct {
	Type  string              `json:"type"`
	Value jsoniter.RawMessage `json:"value"`
}

// EncodeTx wraps msg into a transaction.
func EncodeTx(msg Msg) ([]byte, error) {
	value, err := cdc.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return cdc.Marshal(envelope{Type: msg.Type(), Value: value})
}

// DecodeTx parses a transaction. It does not validate the message.
func DecodeTx(tx []byte) (Msg, error) {
	var env envelope
	if err := cdc.Unmarshal(tx, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	newMsg, ok := msgTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMsg, env.Type)
	}
	msg := newMsg()
	if len(env.Value) == 0 {
		return nil, fmt.Errorf("%w: %s has no value", ErrEncoding, env.Type)
	}
	if err := cdc.Unmarshal(env.Value, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncoding, env.Type, err)
	}
	return msg, nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidMsg, fmt.Sprintf(format, args...))
}

func validateSender(sender types.AccountID) error {
	if sender == "" {
		return invalid("sender can't be empty")
	}
	return nil
}

func validateBookID(id types.OrderBookID) error {
	if err := id.ValidateBasic(); err != nil {
		if errors.Is(err, types.ErrForbiddenToCreateOrderBookWithSameAssets) {
			return err
		}
		return invalid("order book %s: %v", id, err)
	}
	return nil
}

func validateSide(side types.Side) error {
	if side != types.Buy && side != types.Sell {
		return invalid("unknown side %d", side)
	}
	return nil
}

//-----------------------------------------------------------------------------

// MsgPlaceLimitOrder places a limit order. A zero lifespan requests the
// longest one allowed.
type MsgPlaceLimitOrder struct {
	Sender      types.AccountID   `json:"sender"`
	OrderBookID types.OrderBookID `json:"order_book_id"`
	Price       types.OrderPrice  `json:"price"`
	Amount      types.OrderVolume `json:"amount"`
	Side        types.Side        `json:"side"`
	Lifespan    uint64            `json:"lifespan"`
}

// PlaceLimitOrderResult is the response data of MsgPlaceLimitOrder.
type PlaceLimitOrderResult struct {
	OrderID types.OrderID `json:"order_id"`
}

func (msg MsgPlaceLimitOrder) Type() string { return TypePlaceLimitOrder }

func (msg MsgPlaceLimitOrder) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	if err := validateBookID(msg.OrderBookID); err != nil {
		return err
	}
	if !msg.Price.IsPositive() {
		return invalid("price must be positive, got %s", msg.Price)
	}
	if !msg.Amount.IsPositive() {
		return invalid("amount must be positive, got %s", msg.Amount)
	}
	return validateSide(msg.Side)
}

func (msg MsgPlaceLimitOrder) execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error) {
	id, err := m.PlaceLimitOrder(ctx, msg.Sender, msg.OrderBookID, msg.Price, msg.Amount, msg.Side, msg.Lifespan)
	if err != nil {
		return nil, err
	}
	return PlaceLimitOrderResult{OrderID: id}, nil
}

// MsgCancelLimitOrder cancels one order.
type MsgCancelLimitOrder struct {
	Sender      types.AccountID   `json:"sender"`
	OrderBookID types.OrderBookID `json:"order_book_id"`
	OrderID     types.OrderID     `json:"order_id"`
}

func (msg MsgCancelLimitOrder) Type() string { return TypeCancelLimitOrder }

func (msg MsgCancelLimitOrder) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	return validateBookID(msg.OrderBookID)
}

func (msg MsgCancelLimitOrder) execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error) {
	return nil, m.CancelLimitOrder(ctx, msg.Sender, msg.OrderBookID, msg.OrderID)
}

// MsgCancelLimitOrdersBatch cancels orders across books, all or none.
type MsgCancelLimitOrdersBatch struct {
	Sender types.AccountID           `json:"sender"`
	Orders []orderbook.CancelRequest `json:"orders"`
}

func (msg MsgCancelLimitOrdersBatch) Type() string { return TypeCancelLimitOrderBatch }

func (msg MsgCancelLimitOrdersBatch) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	if len(msg.Orders) == 0 {
		return invalid("no orders to cancel")
	}
	for _, req := range msg.Orders {
		if err := validateBookID(req.OrderBookID); err != nil {
			return err
		}
	}
	return nil
}

func (msg MsgCancelLimitOrdersBatch) execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error) {
	return nil, m.CancelLimitOrdersBatch(ctx, msg.Sender, msg.Orders)
}

// MsgExecuteMarketOrder buys or sells Amount of the base asset at market.
type MsgExecuteMarketOrder struct {
	Sender      types.AccountID   `json:"sender"`
	OrderBookID types.OrderBookID `json:"order_book_id"`
	Side        types.Side        `json:"side"`
	Amount      types.OrderVolume `json:"amount"`
}

// MarketOrderResult is the response data of MsgExecuteMarketOrder.
type MarketOrderResult struct {
	Input  types.OrderAmount `json:"input"`
	Output types.OrderAmount `json:"output"`
}

func (msg MsgExecuteMarketOrder) Type() string { return TypeExecuteMarketOrder }

func (msg MsgExecuteMarketOrder) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	if err := validateBookID(msg.OrderBookID); err != nil {
		return err
	}
	if !msg.Amount.IsPositive() {
		return invalid("amount must be positive, got %s", msg.Amount)
	}
	return validateSide(msg.Side)
}

func (msg MsgExecuteMarketOrder) execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error) {
	in, out, err := m.ExecuteMarketOrder(ctx, msg.Sender, msg.OrderBookID, msg.Side, msg.Amount)
	if err != nil {
		return nil, err
	}
	return MarketOrderResult{Input: in, Output: out}, nil
}

// MsgExchange swaps through the book of the pair. An empty receiver is the
// sender.
type MsgExchange struct {
	Sender   types.AccountID  `json:"sender"`
	Receiver types.AccountID  `json:"receiver,omitempty"`
	DEXID    types.DEXID      `json:"dex_id"`
	Input    types.AssetID    `json:"input"`
	Output   types.AssetID    `json:"output"`
	Amount   types.SwapAmount `json:"amount"`
}

func (msg MsgExchange) Type() string { return TypeExchange }

func (msg MsgExchange) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	if msg.Input == "" || msg.Output == "" || msg.Input == msg.Output {
		return invalid("input and output assets must be present and differ")
	}
	if err := msg.Amount.ValidateBasic(); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func (msg MsgExchange) execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error) {
	receiver := msg.Receiver
	if receiver == "" {
		receiver = msg.Sender
	}
	return m.Exchange(ctx, msg.Sender, receiver, msg.DEXID, msg.Input, msg.Output, msg.Amount)
}

// MsgCreateOrderBook opens a market with default attributes.
type MsgCreateOrderBook struct {
	Sender      types.AccountID   `json:"sender"`
	OrderBookID types.OrderBookID `json:"order_book_id"`
}

func (msg MsgCreateOrderBook) Type() string { return TypeCreateOrderBook }

func (msg MsgCreateOrderBook) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	return validateBookID(msg.OrderBookID)
}

func (msg MsgCreateOrderBook) execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error) {
	return m.CreateOrderBook(ctx, msg.Sender, msg.OrderBookID)
}

// MsgUpdateOrderBook changes the trading attributes of a book.
type MsgUpdateOrderBook struct {
	Sender      types.AccountID   `json:"sender"`
	OrderBookID types.OrderBookID `json:"order_book_id"`
	TickSize    types.OrderPrice  `json:"tick_size"`
	StepLotSize types.OrderVolume `json:"step_lot_size"`
	MinLotSize  types.OrderVolume `json:"min_lot_size"`
	MaxLotSize  types.OrderVolume `json:"max_lot_size"`
}

func (msg MsgUpdateOrderBook) Type() string { return TypeUpdateOrderBook }

func (msg MsgUpdateOrderBook) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	return validateBookID(msg.OrderBookID)
}

func (msg MsgUpdateOrderBook) execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error) {
	return nil, m.UpdateOrderBook(ctx, msg.Sender, msg.OrderBookID, msg.TickSize, msg.StepLotSize, msg.MinLotSize, msg.MaxLotSize)
}

// MsgChangeOrderBookStatus switches what a book allows.
type MsgChangeOrderBookStatus struct {
	Sender      types.AccountID       `json:"sender"`
	OrderBookID types.OrderBookID     `json:"order_book_id"`
	Status      types.OrderBookStatus `json:"status"`
}

func (msg MsgChangeOrderBookStatus) Type() string { return TypeChangeOrderBookStatus }

func (msg MsgChangeOrderBookStatus) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	return validateBookID(msg.OrderBookID)
}

func (msg MsgChangeOrderBookStatus) execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error) {
	return nil, m.ChangeOrderBookStatus(ctx, msg.Sender, msg.OrderBookID, msg.Status)
}

// MsgDeleteOrderBook cancels every order of a book and removes it.
type MsgDeleteOrderBook struct {
	Sender      types.AccountID   `json:"sender"`
	OrderBookID types.OrderBookID `json:"order_book_id"`
}

// DeleteOrderBookResult is the response data of MsgDeleteOrderBook.
type DeleteOrderBookResult struct {
	CanceledOrders int `json:"canceled_orders"`
}

func (msg MsgDeleteOrderBook) Type() string { return TypeDeleteOrderBook }

func (msg MsgDeleteOrderBook) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	return validateBookID(msg.OrderBookID)
}

func (msg MsgDeleteOrderBook) execute(ctx orderbook.Context, m *orderbook.Module) (interface{}, error) {
	n, err := m.DeleteOrderBook(ctx, msg.Sender, msg.OrderBookID)
	if err != nil {
		return nil, err
	}
	return DeleteOrderBookResult{CanceledOrders: n}, nil
}
