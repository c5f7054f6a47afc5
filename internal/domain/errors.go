package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals a malformed call: missing id field, missing id value,
	// unsupported operator or bad criteria shape. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound signals a missing document or model.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a document id conflict on create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrEngine signals a network or engine-side failure.
	ErrEngine = errors.New("engine error")
	// ErrPartialMigration signals a mapping reconciliation that stopped partway.
	ErrPartialMigration = errors.New("partial migration failure")
	// ErrNotImplemented signals a declared but unimplemented capability.
	ErrNotImplemented = errors.New("not implemented")
	// ErrMigrationLocked signals that another process holds the migration lock.
	ErrMigrationLocked = errors.New("migration in progress")
)

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// PartialMigrationError reports which model stopped a reconciliation sequence.
// Models listed in Done were reconciled before the failure.
type PartialMigrationError struct {
	Stage string
	Model string
	Done  []string
	Err   error
}

func (e *PartialMigrationError) Error() string {
	return fmt.Sprintf("%s: %s %q (completed %d): %v",
		ErrPartialMigration.Error(), e.Stage, e.Model, len(e.Done), e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *PartialMigrationError) Unwrap() []error { return []error{ErrPartialMigration, e.Err} }
