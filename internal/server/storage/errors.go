package storage

import "errors"

// Common storage errors
var (
	// ErrPageNotFound indicates that no snapshot was saved for the page yet
	ErrPageNotFound = errors.New("page not found")
)
