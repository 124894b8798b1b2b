package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the caller-visible class of an engine failure.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindConcurrency       ErrorKind = "concurrency"
	KindForbidden         ErrorKind = "forbidden"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrConcurrency       = &Error{Kind: KindConcurrency}
	ErrForbidden         = &Error{Kind: KindForbidden}
)

// Error codes that distinguish failures sharing a kind.
const (
	CodeUnknownStore      = "unknown_store"
	CodeUnknownProduct    = "unknown_product"
	CodeUnknownBatch      = "unknown_batch"
	CodeUnknownList       = "unknown_list"
	CodeNoBatches         = "no_batches"
	CodeNoStock           = "no_stock"
	CodeInsufficientStock = "insufficient_stock"
	CodeDuplicateList     = "duplicate_list"
	CodeDuplicateEntry    = "duplicate_stock_entry"
	CodeListClosed        = "list_closed"
	CodeBatchInUse        = "batch_in_use"
)

// Error is the engine's error type.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

// InsufficientStockError reports an allocation that cannot be fully satisfied.
type InsufficientStockError struct {
	StoreID   int64
	ProductID int64
	BatchID   int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.BatchID != 0 {
		return fmt.Sprintf("insufficient stock for batch %d at store %d: requested %d, available %d",
			e.BatchID, e.StoreID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product %d at store %d: requested %d, available %d",
		e.ProductID, e.StoreID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == KindInsufficientStock && (t.Code == "" || t.Code == CodeInsufficientStock)
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...any) error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// ConcurrencyFailure wraps a lock or serialization failure; retrying is safe.
func ConcurrencyFailure(err error) error {
	return &Error{Kind: KindConcurrency, Message: "concurrent update", Err: err}
}

// KindOf returns the kind of err, or "" for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var insufficient *InsufficientStockError
	if errors.As(err, &insufficient) {
		return KindInsufficientStock
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of err, if any.
func CodeOf(err error) string {
	var insufficient *InsufficientStockError
	if errors.As(err, &insufficient) {
		return CodeInsufficientStock
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
