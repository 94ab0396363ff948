package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("transaction not found")
	ErrValidation = errors.New("validation failed")
	ErrStoreIO    = errors.New("store request failed")
	// ErrSummaryStale means the log write succeeded but the summary update
	// did not. The transaction is recorded; a rebuild repairs the summary.
	ErrSummaryStale = fmt.Errorf("%w: transaction saved but inventory summary not updated", ErrStoreIO)
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreIO, op, err)
}

func staleErr(err error) error {
	return fmt.Errorf("%w: %v", ErrSummaryStale, err)
}
