package store

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/tendermint/orderbook/store/kv"
)

// Values are stored as JSON. The standard library compatible config sorts
// map keys and decimals encode as canonical strings, so the same logical
// value always yields the same bytes.
var cdc = jsoniter.ConfigCompatibleWithStandardLibrary

func mustEncode(v interface{}) []byte {
	bz, err := cdc.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("store: unable to encode %T: %v", v, err))
	}
	return bz
}

// load decodes the value under key into v. It reports false if the key is
// absent. Corrupt data panics.
func load(db kv.Store, key []byte, v interface{}) (bool, error) {
	bz, err := db.Get(key)
	if err != nil {
		return false, err
	}
	if len(bz) == 0 {
		return false, nil
	}
	if err := cdc.Unmarshal(bz, v); err != nil {
		panic(fmt.Sprintf("store: data has been corrupted or its spec has changed: %v", err))
	}
	return true, nil
}

func save(db kv.Store, key []byte, v interface{}) error {
	return db.Set(key, mustEncode(v))
}
