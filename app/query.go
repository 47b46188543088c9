package app

import (
	"fmt"

	abcitypes "github.com/tendermint/tendermint/abci/types"

	"github.com/tendermint/orderbook/orderbook"
	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/types"
)

// Query paths.
const (
	QueryOrderBook  = "/orderbook"
	QueryOrder      = "/order"
	QueryDepth      = "/depth"
	QueryUserOrders = "/user_orders"
	QueryBalance    = "/balance"
	QueryQuote      = "/quote"
	QueryGenesis    = "/genesis"
)

// OrderRequest is the data of an /order query.
type OrderRequest struct {
	OrderBookID types.OrderBookID `json:"order_book_id"`
	OrderID     types.OrderID     `json:"order_id"`
}

// DepthRequest is the data of a /depth query. A zero limit returns as many
// levels as the node allows.
type DepthRequest struct {
	OrderBookID types.OrderBookID `json:"order_book_id"`
	Limit       int               `json:"limit,omitempty"`
}

// Depth lists the aggregated levels of both sides, best price first.
type Depth struct {
	Bids []types.PriceLevel `json:"bids"`
	Asks []types.PriceLevel `json:"asks"`
}

// UserOrdersRequest is the data of a /user_orders query.
type UserOrdersRequest struct {
	Account     types.AccountID   `json:"account"`
	OrderBookID types.OrderBookID `json:"order_book_id"`
}

// BalanceRequest is the data of a /balance query.
type BalanceRequest struct {
	Account types.AccountID `json:"account"`
	Asset   types.AssetID   `json:"asset"`
}

// QuoteRequest is the data of a /quote query.
type QuoteRequest struct {
	DEXID  types.DEXID      `json:"dex_id"`
	Input  types.AssetID    `json:"input"`
	Output types.AssetID    `json:"output"`
	Amount types.SwapAmount `json:"amount"`
}

// Query answers from the last committed state. Request and response values
// are JSON.
func (app *Application) Query(req abcitypes.RequestQuery) abcitypes.ResponseQuery {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	value, err := app.query(req.Path, req.Data)
	if err != nil {
		return abcitypes.ResponseQuery{
			Code:      CodeOf(err),
			Codespace: Codespace,
			Log:       err.Error(),
			Height:    app.state.Height,
		}
	}
	bz, err := cdc.Marshal(value)
	if err != nil {
		return abcitypes.ResponseQuery{Code: CodeTypeEncodingError, Codespace: Codespace, Log: err.Error()}
	}
	return abcitypes.ResponseQuery{
		Code:   CodeTypeOK,
		Key:    req.Data,
		Value:  bz,
		Height: app.state.Height,
	}
}

func decodeRequest(data []byte, v interface{}) error {
	if err := cdc.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return nil
}

func (app *Application) query(path string, data []byte) (interface{}, error) {
	if app.module == nil {
		return nil, ErrNotInitialized
	}
	ctx := orderbook.NewContext(app.db, app.state.Height, app.state.Time, nil)

	switch path {
	case QueryOrderBook:
		if len(data) == 0 {
			books, err := store.ListOrderBooks(app.db)
			if books == nil {
				books = []types.OrderBook{}
			}
			return books, err
		}
		var id types.OrderBookID
		if err := decodeRequest(data, &id); err != nil {
			return nil, err
		}
		return store.MustGetOrderBook(app.db, id)

	case QueryOrder:
		var req OrderRequest
		if err := decodeRequest(data, &req); err != nil {
			return nil, err
		}
		return app.module.DataLayer(ctx).GetLimitOrder(req.OrderBookID, req.OrderID)

	case QueryDepth:
		var req DepthRequest
		if err := decodeRequest(data, &req); err != nil {
			return nil, err
		}
		return app.depth(ctx, req)

	case QueryUserOrders:
		var req UserOrdersRequest
		if err := decodeRequest(data, &req); err != nil {
			return nil, err
		}
		dl := app.module.DataLayer(ctx)
		ids, err := dl.GetUserLimitOrders(req.Account, req.OrderBookID)
		if err != nil {
			return nil, err
		}
		orders := make([]types.LimitOrder, 0, len(ids))
		for _, id := range ids {
			order, err := dl.GetLimitOrder(req.OrderBookID, id)
			if err != nil {
				return nil, err
			}
			orders = append(orders, order)
		}
		return orders, nil

	case QueryBalance:
		var req BalanceRequest
		if err := decodeRequest(data, &req); err != nil {
			return nil, err
		}
		return app.bank.FreeBalance(app.db, req.Account, req.Asset)

	case QueryQuote:
		var req QuoteRequest
		if err := decodeRequest(data, &req); err != nil {
			return nil, err
		}
		return app.module.Quote(ctx, req.DEXID, req.Input, req.Output, req.Amount, true)

	case QueryGenesis:
		return app.genesis, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, path)
	}
}

func (app *Application) depth(ctx orderbook.Context, req DepthRequest) (Depth, error) {
	if _, err := store.MustGetOrderBook(ctx.Store, req.OrderBookID); err != nil {
		return Depth{}, err
	}
	limit := req.Limit
	if limit <= 0 || limit > app.queryDepthLimit {
		limit = app.queryDepthLimit
	}

	dl := app.module.DataLayer(ctx)
	var depth Depth
	for _, side := range []types.Side{types.Buy, types.Sell} {
		agg, err := store.GetAggregated(dl, side, req.OrderBookID)
		if err != nil {
			return Depth{}, err
		}
		levels := agg.Levels(side)
		if len(levels) > limit {
			levels = levels[:limit]
		}
		if side == types.Buy {
			depth.Bids = levels
		} else {
			depth.Asks = levels
		}
	}
	return depth, nil
}
