package models

import "errors"

var (
	// ErrValidation marks malformed input such as an empty title.
	ErrValidation = errors.New("validation error")
	// ErrNotFound means the task or conversation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the resource belongs to another owner.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoOp means an update supplied no fields.
	ErrNoOp = errors.New("nothing to update")
	// ErrUnauthenticated means no valid credential was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Code is a stable, machine-readable error class.
type Code string

const (
	CodeValidation      Code = "validation_error"
	CodeNotFound        Code = "not_found"
	CodeUnauthorized    Code = "unauthorized"
	CodeNoOp            Code = "no_op"
	CodeUnauthenticated Code = "unauthenticated"
	CodeInternal        Code = "internal"
)

// CodeOf classifies err. A nil error has an empty code.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrNoOp):
		return CodeNoOp
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	default:
		return CodeInternal
	}
}
