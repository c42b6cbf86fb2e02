package services

import "errors"

// Error kinds. Match with errors.Is; the handler layer maps each to a status code.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("authentication failed")
	ErrForbidden  = errors.New("forbidden")
	ErrDependency = errors.New("dependency failure")
)

// Error is a classified failure with a client-safe message.
type Error struct {
	Kind    error
	Message string
	Details map[string]string
	Err     error // underlying cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func validationError(msg string, details map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: msg, Details: details}
}

func conflictError(msg string) *Error { return &Error{Kind: ErrConflict, Message: msg} }

func notFoundError(msg string) *Error { return &Error{Kind: ErrNotFound, Message: msg} }

func authError(msg string) *Error { return &Error{Kind: ErrAuth, Message: msg} }

func forbiddenError(msg string) *Error { return &Error{Kind: ErrForbidden, Message: msg} }

func dependencyError(msg string, cause error) *Error {
	return &Error{Kind: ErrDependency, Message: msg, Err: cause}
}
