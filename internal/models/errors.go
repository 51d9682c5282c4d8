package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyRefunded      = errors.New("payment already refunded")
	ErrGenerationInProgress = errors.New("invoice generation already running for this period")
)

// Keys reported by DuplicateError
const (
	DupUnitPeriod    = "unit_period"
	DupInvoiceNumber = "invoice_number"
	DupReceiptNumber = "receipt_number"
	DupExternalRef   = "external_ref"
	DupOrderID       = "order_id"
)

// ValidationError is returned for bad input before anything is written
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DuplicateError reports a uniqueness violation on the named key
type DuplicateError struct {
	Key   string
	Value string
}

func (e *DuplicateError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("duplicate %s", e.Key)
	}
	return fmt.Sprintf("duplicate %s %q", e.Key, e.Value)
}

// InsufficientDataError marks a unit that cannot be billed from master data
type InsufficientDataError struct {
	UnitID int64
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("unit %d: %s", e.UnitID, e.Reason)
}

// IdempotencyConflict carries the payment already stored for an external reference
type IdempotencyConflict struct {
	ExternalRef string
	Existing    *Payment
}

func (e *IdempotencyConflict) Error() string {
	return fmt.Sprintf("payment with external reference %q already recorded", e.ExternalRef)
}

// IsDuplicate reports whether err is a DuplicateError on key
func IsDuplicate(err error, key string) bool {
	var dup *DuplicateError
	return errors.As(err, &dup) && dup.Key == key
}
