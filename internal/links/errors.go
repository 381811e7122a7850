package links

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when a destination is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidCustomCode is returned when a custom code fails validation.
	ErrInvalidCustomCode = errors.New("invalid custom code")
	// ErrCodeTaken is returned when a custom code already belongs to another link.
	ErrCodeTaken = errors.New("custom code already taken")
	// ErrAllocationExhausted is returned when every generated candidate collided.
	ErrAllocationExhausted = errors.New("could not allocate a unique short code")
	// ErrNotFound is returned for codes with no stored link.
	ErrNotFound = errors.New("short code not found")
	// ErrStoreUnavailable wraps any failure of the backing store.
	ErrStoreUnavailable = errors.New("link store unavailable")

	// ErrDuplicateCode and ErrDuplicateDestination are returned by
	// Store.InsertIfAbsent when the matching unique index rejects the row.
	ErrDuplicateCode        = errors.New("duplicate code")
	ErrDuplicateDestination = errors.New("duplicate destination")
)

// StoreError wraps a driver error so callers can match it with ErrStoreUnavailable
// while keeping the original error in the chain.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
