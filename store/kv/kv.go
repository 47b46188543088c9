// Package kv defines the key/value surface the engine persists through and
// a transactional overlay used to make every engine operation
// all-or-nothing.
package kv

import (
	"bytes"
	"sort"
)

// Store is the subset of dbm.DB the engine needs. Any dbm.DB satisfies it.
type Store interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Writer receives flushed changes. dbm.Batch satisfies it.
type Writer interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

type overlayEntry struct {
	value   []byte
	deleted bool
}

// Overlay buffers writes on top of a parent Store. Reads see the buffered
// writes first. Nothing reaches the parent until Write is called; dropping
// the overlay discards every change.
//
// Overlay is not goroutine safe.
type Overlay struct {
	parent Store
	dirty  map[string]overlayEntry
}

var _ Store = (*Overlay)(nil)

// NewOverlay returns an empty overlay on top of parent.
func NewOverlay(parent Store) *Overlay {
	return &Overlay{
		parent: parent,
		dirty:  make(map[string]overlayEntry),
	}
}

// Get implements Store.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if e, ok := o.dirty[string(key)]; ok {
		if e.deleted {
			return nil, nil
		}
		return cp(e.value), nil
	}
	return o.parent.Get(key)
}

// Has implements Store.
func (o *Overlay) Has(key []byte) (bool, error) {
	if e, ok := o.dirty[string(key)]; ok {
		return !e.deleted, nil
	}
	return o.parent.Has(key)
}

// Set implements Store.
func (o *Overlay) Set(key, value []byte) error {
	if len(key) == 0 {
		return errKeyEmpty
	}
	if value == nil {
		return errValueNil
	}
	o.dirty[string(key)] = overlayEntry{value: cp(value)}
	return nil
}

// Delete implements Store.
func (o *Overlay) Delete(key []byte) error {
	if len(key) == 0 {
		return errKeyEmpty
	}
	o.dirty[string(key)] = overlayEntry{deleted: true}
	return nil
}

// Len returns the number of buffered changes.
func (o *Overlay) Len() int {
	return len(o.dirty)
}

// Change is one buffered write. A nil Value is a deletion.
type Change struct {
	Key   []byte
	Value []byte
}

// Changes returns the buffered writes in key order.
func (o *Overlay) Changes() []Change {
	changes := make([]Change, 0, len(o.dirty))
	for k, e := range o.dirty {
		c := Change{Key: []byte(k)}
		if !e.deleted {
			c.Value = e.value
		}
		changes = append(changes, c)
	}
	sort.Slice(changes, func(i, j int) bool {
		return bytes.Compare(changes[i].Key, changes[j].Key) < 0
	})
	return changes
}

// Write flushes the buffered changes to the parent in key order and clears
// the overlay.
func (o *Overlay) Write() error {
	if err := o.WriteTo(o.parent); err != nil {
		return err
	}
	o.Discard()
	return nil
}

// WriteTo copies the buffered changes to w in key order. The overlay keeps
// its changes.
func (o *Overlay) WriteTo(w Writer) error {
	for _, c := range o.Changes() {
		var err error
		if c.Value == nil {
			err = w.Delete(c.Key)
		} else {
			err = w.Set(c.Key, c.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Discard drops every buffered change.
func (o *Overlay) Discard() {
	o.dirty = make(map[string]overlayEntry)
}

func cp(bz []byte) []byte {
	out := make([]byte, len(bz))
	copy(out, bz)
	return out
}
