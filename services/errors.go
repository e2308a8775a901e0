package services

import (
	"errors"
	"fmt"
)

// Error categories. Every service method returns either a result or an error
// matching exactly one of these under errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound deliberately covers "not a member" as well as "does not exist".
	ErrNotFound = errors.New("not found or not authorized")
	ErrConflict = errors.New("conflict")
	ErrStorage  = errors.New("storage error")
)

// ServiceError carries a client-facing message and its category.
type ServiceError struct {
	Kind    error
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Is(target error) bool {
	return target == e.Kind
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func validationError(msg string) error {
	return &ServiceError{Kind: ErrValidation, Message: msg}
}

func notFoundError(msg string) error {
	return &ServiceError{Kind: ErrNotFound, Message: msg}
}

func conflictError(msg string) error {
	return &ServiceError{Kind: ErrConflict, Message: msg}
}

func unauthenticatedError(msg string) error {
	return &ServiceError{Kind: ErrUnauthenticated, Message: msg}
}

func storageError(msg string, err error) error {
	return &ServiceError{Kind: ErrStorage, Message: msg, Err: err}
}

// Message returns the client-facing text of err. Storage failures never leak
// their cause.
func Message(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	return "internal server error"
}
