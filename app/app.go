// Package app hosts the order book engine as an ABCI application.
//
// Transactions are JSON envelopes {"type": ..., "value": ...}. Each block
// runs against a write buffer over the committed database: BeginBlock
// services the expirations due, DeliverTx executes transactions and
// Commit writes the buffer in one batch. The app hash chains the previous
// hash with the sorted writes of the block.
package app

import (
	"encoding/binary"
	"fmt"
	"sync"

	abcitypes "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/tmhash"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/orderbook/eventsink"
	"github.com/tendermint/orderbook/ledger"
	"github.com/tendermint/orderbook/libs/log"
	"github.com/tendermint/orderbook/orderbook"
	"github.com/tendermint/orderbook/store"
	"github.com/tendermint/orderbook/store/kv"
	"github.com/tendermint/orderbook/types"
	"github.com/tendermint/orderbook/version"
)

var _ abcitypes.Application = (*Application)(nil)

// Publisher receives the events of every committed block.
type Publisher interface {
	Publish(block eventsink.BlockEvents) error
}

type Application struct {
	abcitypes.BaseApplication

	mtx   sync.Mutex
	db    dbm.DB
	state State

	genesis *Genesis
	bank    ledger.Ledger
	module  *orderbook.Module

	// block in progress
	pending     *kv.Overlay
	blockEvents *orderbook.EventManager
	height      int64
	time        int64

	publisher       Publisher
	queryDepthLimit int
	logger          log.Logger
	metrics         *orderbook.Metrics
}

// Option sets an optional parameter on the Application.
type Option func(*Application)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(app *Application) { app.logger = logger }
}

// WithMetrics sets the engine metrics.
func WithMetrics(metrics *orderbook.Metrics) Option {
	return func(app *Application) { app.metrics = metrics }
}

// WithPublisher forwards the events of committed blocks to p.
func WithPublisher(p Publisher) Option {
	return func(app *Application) { app.publisher = p }
}

// WithQueryDepthLimit caps the number of price levels a depth query returns.
func WithQueryDepthLimit(limit int) Option {
	return func(app *Application) { app.queryDepthLimit = limit }
}

// NewApplication returns an application over db. If the chain was
// initialized before, the engine is restored from the stored genesis.
func NewApplication(db dbm.DB, options ...Option) (*Application, error) {
	app := &Application{
		db:              db,
		bank:            ledger.New(),
		queryDepthLimit: 100,
		logger:          log.NewNopLogger(),
		metrics:         orderbook.NopMetrics(),
	}
	for _, option := range options {
		option(app)
	}

	state, err := loadState(db)
	if err != nil {
		return nil, err
	}
	app.state = state

	g, ok, err := loadGenesis(db)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := app.setup(g); err != nil {
			return nil, err
		}
	}
	return app, nil
}

func (app *Application) setup(g Genesis) error {
	registry, err := g.Registry()
	if err != nil {
		return err
	}
	app.genesis = &g
	app.module = orderbook.NewModule(
		g.Params,
		app.bank,
		registry,
		registry,
		newAuthority(g.Authorities),
		orderbook.WithLogger(app.logger.With("module", "orderbook")),
		orderbook.WithMetrics(app.metrics),
	)
	return nil
}

// Close closes the database.
func (app *Application) Close() error {
	return app.db.Close()
}

func (app *Application) Info(req abcitypes.RequestInfo) abcitypes.ResponseInfo {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	return abcitypes.ResponseInfo{
		Data:             "orderbook",
		Version:          version.Version,
		AppVersion:       version.AppProtocol.Uint64(),
		LastBlockHeight:  app.state.Height,
		LastBlockAppHash: app.state.AppHash,
	}
}

// InitChain builds the initial state from the app_state of the genesis
// document. The writes become part of the first block.
func (app *Application) InitChain(req abcitypes.RequestInitChain) abcitypes.ResponseInitChain {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	g, err := GenesisFromJSON(req.AppStateBytes)
	if err != nil {
		panic(err)
	}
	if err := app.setup(g); err != nil {
		panic(err)
	}

	height := req.InitialHeight
	if height == 0 {
		height = 1
	}
	ctx := app.begin(height, req.Time.UnixMilli())

	bz, err := cdc.Marshal(g)
	if err != nil {
		panic(err)
	}
	if err := ctx.Store.Set(store.GenesisKey(), bz); err != nil {
		panic(err)
	}
	for _, b := range g.Balances {
		if err := app.bank.Mint(ctx.Store, b.Account, b.Asset, b.Amount); err != nil {
			panic(fmt.Errorf("minting genesis balance of %s: %w", b.Account, err))
		}
	}
	for _, id := range g.OrderBooks {
		if _, err := app.module.CreateOrderBook(ctx, g.Authorities[0], id); err != nil {
			panic(fmt.Errorf("creating genesis order book %s: %w", id, err))
		}
	}
	app.logger.Info("initialized chain", "chain_id", req.ChainId, "books", len(g.OrderBooks), "balances", len(g.Balances))
	return abcitypes.ResponseInitChain{}
}

// begin opens the block at height unless one is open already and returns
// a context over it.
func (app *Application) begin(height, time int64) orderbook.Context {
	if app.pending == nil {
		app.pending = kv.NewOverlay(app.db)
		app.blockEvents = orderbook.NewEventManager()
	}
	app.height, app.time = height, time
	return orderbook.NewContext(app.pending, app.height, app.time, app.blockEvents)
}

// BeginBlock expires the orders due at this block and continues aligning
// books locked by an attribute update. Both share one weight budget.
func (app *Application) BeginBlock(req abcitypes.RequestBeginBlock) abcitypes.ResponseBeginBlock {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	if app.module == nil {
		panic(ErrNotInitialized)
	}
	events := orderbook.NewEventManager()
	ctx := app.begin(req.Header.Height, req.Header.Time.UnixMilli())
	ctx = orderbook.NewContext(ctx.Store, ctx.Height, ctx.Time, events)

	meter := orderbook.NewWeightMeter(app.genesis.ExpirationWeightLimit)
	if err := app.module.ServiceExpirations(ctx, meter); err != nil {
		panic(fmt.Errorf("servicing expirations at %d: %w", ctx.Height, err))
	}
	if err := app.module.ServiceAlignment(ctx, meter); err != nil {
		panic(fmt.Errorf("servicing alignment at %d: %w", ctx.Height, err))
	}
	app.blockEvents.Emit(events.Events()...)
	return abcitypes.ResponseBeginBlock{Events: toABCIEvents(events.Events())}
}

// CheckTx is stateless: it only decodes and validates the message.
func (app *Application) CheckTx(req abcitypes.RequestCheckTx) abcitypes.ResponseCheckTx {
	msg, err := DecodeTx(req.Tx)
	if err == nil {
		err = msg.ValidateBasic()
	}
	if err != nil {
		return abcitypes.ResponseCheckTx{Code: CodeOf(err), Codespace: Codespace, Log: err.Error()}
	}
	return abcitypes.ResponseCheckTx{Code: CodeTypeOK, GasWanted: 1}
}

func (app *Application) DeliverTx(req abcitypes.RequestDeliverTx) abcitypes.ResponseDeliverTx {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	data, events, err := app.deliver(req.Tx)
	if err != nil {
		app.logger.Debug("rejected tx", "height", app.height, "err", err)
		return abcitypes.ResponseDeliverTx{Code: CodeOf(err), Codespace: Codespace, Log: err.Error()}
	}
	return abcitypes.ResponseDeliverTx{Code: CodeTypeOK, Data: data, Events: toABCIEvents(events)}
}

func (app *Application) deliver(tx []byte) ([]byte, []types.Event, error) {
	if app.module == nil {
		return nil, nil, ErrNotInitialized
	}
	msg, err := DecodeTx(tx)
	if err != nil {
		return nil, nil, err
	}
	if err := msg.ValidateBasic(); err != nil {
		return nil, nil, err
	}

	events := orderbook.NewEventManager()
	ctx := app.begin(app.height, app.time)
	ctx = orderbook.NewContext(ctx.Store, ctx.Height, ctx.Time, events)
	result, err := msg.execute(ctx, app.module)
	if err != nil {
		return nil, nil, err
	}

	var data []byte
	if result != nil {
		if data, err = cdc.Marshal(result); err != nil {
			return nil, nil, err
		}
	}
	app.blockEvents.Emit(events.Events()...)
	return data, events.Events(), nil
}

// Commit persists the writes of the block in one batch along with the new
// state, then hands the events of the block to the publisher.
func (app *Application) Commit() abcitypes.ResponseCommit {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	app.begin(app.height, app.time)
	changes := app.pending.Changes()

	state := State{
		Height:  app.height,
		AppHash: nextAppHash(app.state.AppHash, changes),
		Time:    app.time,
	}

	batch := app.db.NewBatch()
	defer batch.Close()
	if err := app.pending.WriteTo(batch); err != nil {
		panic(err)
	}
	if err := saveState(batch, state); err != nil {
		panic(err)
	}
	if err := batch.WriteSync(); err != nil {
		panic(err)
	}
	app.state = state

	block := eventsink.BlockEvents{Height: state.Height, Time: state.Time, Events: app.blockEvents.Events()}
	app.pending, app.blockEvents = nil, nil

	app.logger.Info("committed state", "height", state.Height, "writes", len(changes), "events", len(block.Events),
		"app_hash", fmt.Sprintf("%X", state.AppHash))
	if app.publisher != nil {
		if err := app.publisher.Publish(block); err != nil {
			app.logger.Error("failed to publish block events", "height", state.Height, "err", err)
		}
	}
	return abcitypes.ResponseCommit{Data: state.AppHash}
}

// nextAppHash chains prev with the writes of a block. A block without
// writes keeps the hash.
func nextAppHash(prev []byte, changes []kv.Change) []byte {
	if len(changes) == 0 {
		return prev
	}
	h := tmhash.New()
	var buf [binary.MaxVarintLen64]byte
	writeBytes := func(bz []byte) {
		n := binary.PutUvarint(buf[:], uint64(len(bz)))
		h.Write(buf[:n])
		h.Write(bz)
	}

	writeBytes(prev)
	for _, c := range changes {
		writeBytes(c.Key)
		if c.Value == nil {
			h.Write([]byte{0})
			continue
		}
		h.Write([]byte{1})
		writeBytes(c.Value)
	}
	return h.Sum(nil)
}
