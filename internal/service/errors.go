package service

import (
	"errors"
	"fmt"
)

// ErrAlreadyProcessed is reported per item when an apply batch names an item
// that has already been filed.
var ErrAlreadyProcessed = errors.New("already processed")

// ValidationError reports a request field the backend refused.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
