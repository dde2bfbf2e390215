package engine

import (
	"errors"
	"fmt"
)

// ErrorKind splits store access failures into the two cases the query layer
// cares about: conditions worth retrying and conditions that never resolve.
type ErrorKind int

const (
	// KindTransient marks a store that exists but is not yet serving, for
	// example while the instance is rebalancing or restoring local state.
	KindTransient ErrorKind = iota + 1

	// KindPermanent marks a store that is not defined on the instance, has an
	// incompatible type, or belongs to a closed instance.
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// StoreError is the tagged failure returned by Instance.Store.
type StoreError struct {
	Store string
	Kind  ErrorKind
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %q: %s (%s)", e.Store, e.Err, e.Kind)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewTransientStoreError wraps err as a retryable store access failure.
func NewTransientStoreError(store string, err error) error {
	return &StoreError{Store: store, Kind: KindTransient, Err: err}
}

// NewPermanentStoreError wraps err as a non-retryable store access failure.
func NewPermanentStoreError(store string, err error) error {
	return &StoreError{Store: store, Kind: KindPermanent, Err: err}
}

// IsTransient reports whether err is a store access failure that may resolve
// on retry.
func IsTransient(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == KindTransient
}

// IsPermanent reports whether err is a store access failure that no amount of
// retrying will resolve.
func IsPermanent(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == KindPermanent
}

// Common causes carried inside StoreError.
var (
	ErrStoreNotReady    = errors.New("store is not yet serving queries")
	ErrStoreNotFound    = errors.New("store is not defined on this instance")
	ErrStoreTypeInvalid = errors.New("store does not support the requested type")
	ErrInstanceClosed   = errors.New("instance is closed")
)
