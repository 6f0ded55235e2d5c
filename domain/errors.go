package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenNotFound means neither the direct key nor a legacy
	// identifier yielded a token record. Recoverable: the upsert path
	// inserts, the single-user refresh path no-ops.
	ErrTokenNotFound = errors.New("no tokens found for user and provider")

	// ErrAmbiguousTokens means the store holds more than one record for
	// a single (user key, provider id) pair. That is a data-integrity
	// violation and is never silently resolved.
	ErrAmbiguousTokens = errors.New("multiple token records found for user and provider")
)

// StoreError wraps a persistence fault hit on the lookup path.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("token store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// OperationError wraps a persistence fault hit while mutating token
// records (insert, update, delete).
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("token operation: %s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
