package domain

import "errors"

// Domain errors
var (
	ErrMissingIdentity = errors.New("no steam id present")
	ErrLibraryNotFound = errors.New("library not loaded for steam id")
	ErrNoMoreGames     = errors.New("no more games to load")
	ErrCacheMiss       = errors.New("cache miss")
	ErrNotFound        = errors.New("not found")
	ErrRemoteFailure   = errors.New("remote api failure")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInternalError   = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrLibraryNotFound)
}
