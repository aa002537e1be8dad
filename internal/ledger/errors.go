package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ledger taxonomy.
var (
	ErrInvalidInput        = errors.New("ledger: invalid input")
	ErrSaleLocked          = errors.New("ledger: sale is locked")
	ErrStockExceeded       = errors.New("ledger: provider stock exceeded")
	ErrClientLimitExceeded = errors.New("ledger: client crate limit exceeded")
	ErrEmptyExceedsFull    = errors.New("ledger: empty crates exceed full crates")
	ErrPersistenceFailure  = errors.New("ledger: snapshot write failed")

	ErrProviderNotFound = errors.New("ledger: provider not found")
	ErrSaleNotFound     = errors.New("ledger: sale not found")
	ErrEntryNotFound    = errors.New("ledger: entry not found")
	ErrUnknownAction    = errors.New("ledger: unknown action")
)

// RejectionReason identifies why the guard refused an entry.
type RejectionReason string

const (
	ReasonInvalidInput        RejectionReason = "invalid_input"
	ReasonSaleLocked          RejectionReason = "sale_locked"
	ReasonStockExceeded       RejectionReason = "stock_exceeded"
	ReasonClientLimitExceeded RejectionReason = "client_limit_exceeded"
	ReasonEmptyExceedsFull    RejectionReason = "empty_exceeds_full"
)

var reasonSentinels = map[RejectionReason]error{
	ReasonInvalidInput:        ErrInvalidInput,
	ReasonSaleLocked:          ErrSaleLocked,
	ReasonStockExceeded:       ErrStockExceeded,
	ReasonClientLimitExceeded: ErrClientLimitExceeded,
	ReasonEmptyExceedsFull:    ErrEmptyExceedsFull,
}

// RejectionError is returned by the guard when an entry cannot be committed.
// Remaining carries the crate headroom for stock and client-limit rejections.
type RejectionError struct {
	Reason    RejectionReason
	Remaining int
	Message   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("ledger: %s: %s", e.Reason, e.Message)
}

func (e *RejectionError) Unwrap() error {
	return reasonSentinels[e.Reason]
}

func reject(reason RejectionReason, remaining int, format string, args ...any) *RejectionError {
	return &RejectionError{Reason: reason, Remaining: remaining, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports a malformed provider or sale definition.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("ledger: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// PersistenceError reports a failed snapshot write. The in-memory mutation
// that preceded it has already been applied.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger: snapshot write failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistenceFailure, e.Err}
}

// IsRejection reports whether err is a guard rejection.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// IsNotFound reports whether err refers to a missing provider, sale or entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProviderNotFound) ||
		errors.Is(err, ErrSaleNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

// IsPersistenceWarning reports whether err only signals a failed snapshot
// write after a successful mutation.
func IsPersistenceWarning(err error) bool {
	return errors.Is(err, ErrPersistenceFailure)
}
