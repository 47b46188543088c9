package kv

import "errors"

var (
	errKeyEmpty = errors.New("key cannot be empty")
	errValueNil = errors.New("value cannot be nil")
)
