package storage

import "errors"

// Common client storage errors
var (
	// ErrPageLocked indicates that the page cache is already open in this process
	ErrPageLocked = errors.New("page cache is already open")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
