package graphgate

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Error kinds categorize errors by their type.
const (
	// KindNotFound represents errors where a project, template, or grant
	// was not found.
	KindNotFound = "not_found"

	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindPermission represents errors related to access control decisions.
	KindPermission = "permission"

	// KindNotMounted represents operations attempted without a mounted
	// project context.
	KindNotMounted = "not_mounted"

	// KindContamination represents cross-tenant data leakage detected in
	// a response.
	KindContamination = "contamination"

	// KindStorage represents errors from the underlying graph store or
	// Redis backend.
	KindStorage = "storage"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindInternal represents internal gateway errors.
	KindInternal = "internal"
)

// GateError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type GateError struct {
	// Op is the operation that failed (e.g., "gateway.Mount", "gateway.Query").
	Op string

	// Kind categorizes the error type using the Kind* constants.
	Kind string

	// Err is the underlying error, if any.
	Err error

	// Context contains additional error context as key-value pairs.
	Context map[string]any
}

// Error implements the error interface.
func (e *GateError) Error() string {
	if e.Err != nil {
		if len(e.Context) > 0 {
			return fmt.Sprintf("graphgate: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
		}
		return fmt.Sprintf("graphgate: %s (%s): %v", e.Op, e.Kind, e.Err)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("graphgate: %s (%s) [context: %+v]", e.Op, e.Kind, e.Context)
	}
	return fmt.Sprintf("graphgate: %s (%s)", e.Op, e.Kind)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *GateError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target error.
// It matches if the target is a *GateError with the same Kind,
// or if the underlying error matches.
func (e *GateError) Is(target error) bool {
	var ge *GateError
	if errors.As(target, &ge) {
		if ge.Kind != "" && e.Kind != ge.Kind {
			return false
		}
		if ge.Op != "" && e.Op != ge.Op {
			return false
		}
		return true
	}
	return false
}

// WithContext returns a copy of the error with additional context.
func (e *GateError) WithContext(key string, value any) *GateError {
	newErr := &GateError{
		Op:      e.Op,
		Kind:    e.Kind,
		Err:     e.Err,
		Context: make(map[string]any, len(e.Context)+1),
	}
	for k, v := range e.Context {
		newErr.Context[k] = v
	}
	newErr.Context[key] = value
	return newErr
}

// NewError creates a new GateError with the given operation, kind, and
// underlying error.
func NewError(op, kind string, err error) *GateError {
	return &GateError{Op: op, Kind: kind, Err: err}
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(op string, err error) *GateError {
	return NewError(op, KindNotFound, err)
}

// NewValidationError creates a new validation error.
func NewValidationError(op string, err error) *GateError {
	return NewError(op, KindValidation, err)
}

// NewPermissionError creates a new permission error.
func NewPermissionError(op string, err error) *GateError {
	return NewError(op, KindPermission, err)
}

// NewStorageError creates a new storage error.
func NewStorageError(op string, err error) *GateError {
	return NewError(op, KindStorage, err)
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(op string, err error) *GateError {
	return NewError(op, KindConfiguration, err)
}

// NewInternalError creates a new internal error.
func NewInternalError(op string, err error) *GateError {
	return NewError(op, KindInternal, err)
}

// CloseWithLog closes an io.Closer and logs any error that occurs.
// This is useful in defer statements where the close error would
// otherwise be silently discarded.
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil && logger != nil {
		logger.Warn("failed to close resource",
			slog.String("resource", name),
			slog.Any("error", err))
	}
}
