package tradestore

import "errors"

var (
	// ErrInvalidOpenDate is returned when a trade's OpenDate is not
	// strictly positive.
	ErrInvalidOpenDate = errors.New("tradestore: open_date must be > 0")
	// ErrReadOnly is returned when a mutation is attempted against a
	// store opened in read-only mode.
	ErrReadOnly = errors.New("tradestore: store is read-only")
)
