package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrDeadlineExceeded indicates that a reasoning-service call outlived its deadline
	ErrDeadlineExceeded = errors.New("reasoning call deadline exceeded")

	// ErrEmptyResponse indicates that the reasoning service returned no usable payload
	ErrEmptyResponse = errors.New("empty reasoning response")

	// ErrStoreClosed indicates that a store handle was used after Close
	ErrStoreClosed = errors.New("store closed")

	// ErrNoViableStrategy indicates that no recovery strategy survived tool filtering
	ErrNoViableStrategy = errors.New("no viable recovery strategy")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)
