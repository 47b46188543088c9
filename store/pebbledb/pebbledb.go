// Package pebbledb implements the tm-db DB interface on top of
// cockroachdb/pebble.
package pebbledb

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	dbm "github.com/tendermint/tm-db"
)

// BackendType is the db backend name selecting this implementation.
const BackendType = "pebbledb"

var (
	errKeyEmpty    = errors.New("key cannot be empty")
	errValueNil    = errors.New("value cannot be nil")
	errBatchClosed = errors.New("batch has been written or closed")
)

// PebbleDB is a dbm.DB backed by a pebble store.
type PebbleDB struct {
	db *pebble.DB
}

var _ dbm.DB = (*PebbleDB)(nil)

// New opens (creating if needed) the pebble store name.db in dir.
func New(name, dir string) (*PebbleDB, error) {
	return NewWithOptions(name, dir, &pebble.Options{})
}

func NewWithOptions(name, dir string, opts *pebble.Options) (*PebbleDB, error) {
	db, err := pebble.Open(filepath.Join(dir, name+".db"), opts)
	if err != nil {
		return nil, err
	}
	return &PebbleDB{db: db}, nil
}

// Get implements DB.
func (db *PebbleDB) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errKeyEmpty
	}
	value, closer, err := db.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Has implements DB.
func (db *PebbleDB) Has(key []byte) (bool, error) {
	bz, err := db.Get(key)
	if err != nil {
		return false, err
	}
	return bz != nil, nil
}

// Set implements DB.
func (db *PebbleDB) Set(key, value []byte) error {
	return db.set(key, value, pebble.NoSync)
}

// SetSync implements DB.
func (db *PebbleDB) SetSync(key, value []byte) error {
	return db.set(key, value, pebble.Sync)
}

func (db *PebbleDB) set(key, value []byte, opts *pebble.WriteOptions) error {
	if len(key) == 0 {
		return errKeyEmpty
	}
	if value == nil {
		return errValueNil
	}
	return db.db.Set(key, value, opts)
}

// Delete implements DB.
func (db *PebbleDB) Delete(key []byte) error {
	return db.delete(key, pebble.NoSync)
}

// DeleteSync implements DB.
func (db *PebbleDB) DeleteSync(key []byte) error {
	return db.delete(key, pebble.Sync)
}

func (db *PebbleDB) delete(key []byte, opts *pebble.WriteOptions) error {
	if len(key) == 0 {
		return errKeyEmpty
	}
	return db.db.Delete(key, opts)
}

// Iterator implements DB.
func (db *PebbleDB) Iterator(start, end []byte) (dbm.Iterator, error) {
	return db.newIterator(start, end, false)
}

// ReverseIterator implements DB.
func (db *PebbleDB) ReverseIterator(start, end []byte) (dbm.Iterator, error) {
	return db.newIterator(start, end, true)
}

func (db *PebbleDB) newIterator(start, end []byte, isReverse bool) (dbm.Iterator, error) {
	if (start != nil && len(start) == 0) || (end != nil && len(end) == 0) {
		return nil, errKeyEmpty
	}
	itr, err := db.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	if err != nil {
		return nil, err
	}
	return newPebbleIterator(itr, start, end, isReverse), nil
}

// Close implements DB.
func (db *PebbleDB) Close() error {
	return db.db.Close()
}

// NewBatch implements DB.
func (db *PebbleDB) NewBatch() dbm.Batch {
	return &pebbleBatch{db: db, batch: db.db.NewBatch()}
}

// Print implements DB.
func (db *PebbleDB) Print() error {
	itr, err := db.Iterator(nil, nil)
	if err != nil {
		return err
	}
	defer itr.Close()
	for ; itr.Valid(); itr.Next() {
		fmt.Printf("[%X]:\t[%X]\n", itr.Key(), itr.Value())
	}
	return itr.Error()
}

// Stats implements DB.
func (db *PebbleDB) Stats() map[string]string {
	return map[string]string{
		"pebble.metrics": db.db.Metrics().String(),
	}
}

type pebbleIterator struct {
	source     *pebble.Iterator
	start, end []byte
	isReverse  bool
}

var _ dbm.Iterator = (*pebbleIterator)(nil)

func newPebbleIterator(source *pebble.Iterator, start, end []byte, isReverse bool) *pebbleIterator {
	if isReverse {
		source.Last()
	} else {
		source.First()
	}
	return &pebbleIterator{
		source:    source,
		start:     start,
		end:       end,
		isReverse: isReverse,
	}
}

// Domain implements Iterator.
func (itr *pebbleIterator) Domain() ([]byte, []byte) {
	return itr.start, itr.end
}

// Valid implements Iterator. Bounds are enforced by the pebble iterator.
func (itr *pebbleIterator) Valid() bool {
	return itr.source.Valid()
}

// Next implements Iterator.
func (itr *pebbleIterator) Next() {
	itr.assertIsValid()
	if itr.isReverse {
		itr.source.Prev()
	} else {
		itr.source.Next()
	}
}

// Key implements Iterator.
func (itr *pebbleIterator) Key() []byte {
	itr.assertIsValid()
	return cp(itr.source.Key())
}

// Value implements Iterator.
func (itr *pebbleIterator) Value() []byte {
	itr.assertIsValid()
	return cp(itr.source.Value())
}

// Error implements Iterator.
func (itr *pebbleIterator) Error() error {
	return itr.source.Error()
}

// Close implements Iterator.
func (itr *pebbleIterator) Close() error {
	return itr.source.Close()
}

func (itr *pebbleIterator) assertIsValid() {
	if !itr.Valid() {
		panic("iterator is invalid")
	}
}

type pebbleBatch struct {
	db    *PebbleDB
	batch *pebble.Batch
}

var _ dbm.Batch = (*pebbleBatch)(nil)

// Set implements Batch.
func (b *pebbleBatch) Set(key, value []byte) error {
	if len(key) == 0 {
		return errKeyEmpty
	}
	if value == nil {
		return errValueNil
	}
	if b.batch == nil {
		return errBatchClosed
	}
	return b.batch.Set(key, value, nil)
}

// Delete implements Batch.
func (b *pebbleBatch) Delete(key []byte) error {
	if len(key) == 0 {
		return errKeyEmpty
	}
	if b.batch == nil {
		return errBatchClosed
	}
	return b.batch.Delete(key, nil)
}

// Write implements Batch.
func (b *pebbleBatch) Write() error {
	return b.write(pebble.NoSync)
}

// WriteSync implements Batch.
func (b *pebbleBatch) WriteSync() error {
	return b.write(pebble.Sync)
}

func (b *pebbleBatch) write(opts *pebble.WriteOptions) error {
	if b.batch == nil {
		return errBatchClosed
	}
	if err := b.batch.Commit(opts); err != nil {
		return err
	}
	// Make sure batch cannot be used afterwards. Callers should still call Close(), for errors.
	return b.Close()
}

// Close implements Batch.
func (b *pebbleBatch) Close() error {
	if b.batch != nil {
		err := b.batch.Close()
		b.batch = nil
		return err
	}
	return nil
}

func cp(bz []byte) []byte {
	out := make([]byte, len(bz))
	copy(out, bz)
	return out
}
