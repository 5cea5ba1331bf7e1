package store

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNilState = errors.New("nil state")
)
