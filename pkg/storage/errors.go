package storage

import "errors"

var (
	// ErrNotFound is returned by stores when the requested track does not exist.
	ErrNotFound = errors.New("record not found")
)
