// Package eventsink forwards the events of committed blocks to external
// systems.
package eventsink

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/tendermint/orderbook/types"
)

var cdc = jsoniter.ConfigCompatibleWithStandardLibrary

// Type names a sink backend.
type Type string

const (
	NULL  Type = "null"
	KAFKA Type = "kafka"
	PSQL  Type = "psql"
)

// ParseType returns the sink type named s, case-insensitively.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case NULL, KAFKA, PSQL:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported event sink type: %q", s)
	}
}

// BlockEvents are the events emitted while executing one committed block.
type BlockEvents struct {
	Height int64 `json:"height"`
	// Time is the block time in milliseconds since epoch.
	Time   int64         `json:"time"`
	Events []types.Event `json:"events"`
}

// Record is one event as it leaves the node. Index is the position of the
// event within its block, so (Height, Index) identifies it.
type Record struct {
	Height int64       `json:"height"`
	Time   int64       `json:"time"`
	Index  int         `json:"index"`
	Event  types.Event `json:"event"`
}

// Records flattens the block into records in emission order.
func (b BlockEvents) Records() []Record {
	records := make([]Record, len(b.Events))
	for i, e := range b.Events {
		records[i] = Record{Height: b.Height, Time: b.Time, Index: i, Event: e}
	}
	return records
}

// Sink receives the events of committed blocks in height order.
type Sink interface {
	Write(ctx context.Context, block BlockEvents) error
	Close() error
}

// NullSink drops everything.
type NullSink struct{}

var _ Sink = NullSink{}

func (NullSink) Write(context.Context, BlockEvents) error { return nil }
func (NullSink) Close() error                             { return nil }

// MultiSink writes every block to each of its sinks in order and stops at
// the first failure.
type MultiSink []Sink

var _ Sink = MultiSink(nil)

func (ms MultiSink) Write(ctx context.Context, block BlockEvents) error {
	for _, s := range ms {
		if err := s.Write(ctx, block); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the first error.
func (ms MultiSink) Close() error {
	var first error
	for _, s := range ms {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
