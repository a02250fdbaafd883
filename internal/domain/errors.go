package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable = errors.New("submission store unavailable")
	ErrDispatchFailed   = errors.New("escalation dispatch failed")
	ErrNotFound         = errors.New("submission not found")
)

// ValidationError marks a job that can never succeed; the worker drops it
// instead of retrying.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid job: %s %s", e.Field, e.Reason)
}

// Retryable reports whether err is worth another attempt. Validation errors
// are the only fatal class; anything else is treated as transient.
func Retryable(err error) bool {
	var ve *ValidationError
	return !errors.As(err, &ve)
}
