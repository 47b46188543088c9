package eventsink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adlio/schema"

	// register the postgres driver
	_ "github.com/lib/pq"
)

const (
	TableEvents = "orderbook_events"
	DriverName  = "postgres"
)

// Migrations create the tables the PSQL sink writes to.
var Migrations = []*schema.Migration{
	{
		ID: "2022-05-01 create orderbook_events",
		Script: `
CREATE TABLE orderbook_events (
  rowid      BIGSERIAL PRIMARY KEY,
  chain_id   VARCHAR NOT NULL,
  height     BIGINT NOT NULL,
  position   INTEGER NOT NULL,
  type       VARCHAR NOT NULL,
  order_book VARCHAR NOT NULL,
  attributes JSONB NOT NULL,
  block_time TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  UNIQUE (chain_id, height, position)
);
CREATE INDEX idx_orderbook_events_book ON orderbook_events(order_book, height);
CREATE INDEX idx_orderbook_events_type ON orderbook_events(type, height);
`,
	},
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PSQLSink stores events in a PostgreSQL database, one row per event.
// Rewriting a block is a no-op, so a replayed block after a crash does not
// duplicate rows.
type PSQLSink struct {
	store   *sql.DB
	chainID string
	now     func() time.Time
}

var _ Sink = (*PSQLSink)(nil)

// NewPSQLSink connects to the database at connStr. Events are attributed to
// chainID.
func NewPSQLSink(connStr, chainID string) (*PSQLSink, error) {
	db, err := sql.Open(DriverName, connStr)
	if err != nil {
		return nil, err
	}
	return &PSQLSink{
		store:   db,
		chainID: chainID,
		now:     time.Now,
	}, nil
}

// DB returns the underlying Postgres connection used by the sink.
func (ps *PSQLSink) DB() *sql.DB { return ps.store }

// Migrate applies the pending Migrations.
func (ps *PSQLSink) Migrate() error {
	return schema.NewMigrator().Apply(ps.store, Migrations)
}

func (ps *PSQLSink) Write(ctx context.Context, block BlockEvents) error {
	if len(block.Events) == 0 {
		return nil
	}
	return runInTransaction(ctx, ps.store, func(tx *sql.Tx) error {
		return insertBlock(ctx, tx, ps.chainID, block, ps.now())
	})
}

func (ps *PSQLSink) Close() error {
	return ps.store.Close()
}

const insertEvent = `INSERT INTO ` + TableEvents + `
  (chain_id, height, position, type, order_book, attributes, block_time, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (chain_id, height, position) DO NOTHING`

func insertBlock(ctx context.Context, db execer, chainID string, block BlockEvents, now time.Time) error {
	blockTime := time.UnixMilli(block.Time).UTC()
	for _, r := range block.Records() {
		attrs := make(map[string]string, len(r.Event.Attributes))
		for _, a := range r.Event.Attributes {
			attrs[a.Key] = a.Value
		}
		bz, err := cdc.Marshal(attrs)
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, insertEvent,
			chainID, r.Height, r.Index, string(r.Event.Type), r.Event.OrderBookID.String(), string(bz), blockTime, now)
		if err != nil {
			return fmt.Errorf("indexing event %d of block %d: %w", r.Index, r.Height, err)
		}
	}
	return nil
}

// runInTransaction runs query in a fresh transaction and commits it if
// query succeeds.
func runInTransaction(ctx context.Context, db *sql.DB, query func(*sql.Tx) error) error {
	dbtx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := query(dbtx); err != nil {
		_ = dbtx.Rollback() // report the initial error, not the rollback
		return err
	}
	return dbtx.Commit()
}
