package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackend marks failures of the backend or classifier services.
	ErrBackend = errors.New("backend error")
)

// ValidationError rejects bad input before any external call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// BusyError rejects an operation because another batch of the same kind is
// still in flight. The second call is rejected, never queued.
type BusyError struct {
	Op string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%s already in progress", e.Op)
}

// NoSelectionError rejects an apply whose resolved scope is empty.
type NoSelectionError struct{}

func (e *NoSelectionError) Error() string {
	return "no items selected for apply"
}

// PartialApplyError records that an apply batch completed as a call but some
// items in scope failed. It is non-fatal: the failed items remain in the
// active list for retry.
type PartialApplyError struct {
	Errors []string
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("apply completed with %d error(s): %s", len(e.Errors), strings.Join(e.Errors, "; "))
}

// wrapBackend wraps a backend/classifier failure so callers can match it
// with errors.Is(err, ErrBackend).
func wrapBackend(err error, msg string) error {
	return fmt.Errorf("%s: %w: %w", msg, ErrBackend, err)
}
