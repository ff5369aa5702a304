package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies business failures so transports can map them without
// inspecting messages.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindInsufficientStock  ErrorKind = "insufficient_stock"
	KindInvalidState       ErrorKind = "invalid_state_transition"
	KindDuplicate          ErrorKind = "duplicate_constraint"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindValidation         ErrorKind = "validation"
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

// AppError is the single error type returned by services.
// Detail is safe to show to the caller; Err is kept for logs only.
type AppError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newAppError(kind ErrorKind, detail string, err error) *AppError {
	if detail == "" {
		detail = string(kind)
	}
	return &AppError{Kind: kind, Detail: detail, Err: err}
}

func ErrNotFound(detail string) *AppError { return newAppError(KindNotFound, detail, nil) }

func ErrInvalidState(detail string) *AppError { return newAppError(KindInvalidState, detail, nil) }

func ErrDuplicate(detail string) *AppError { return newAppError(KindDuplicate, detail, nil) }

func ErrUnauthorized(detail string) *AppError { return newAppError(KindUnauthorized, detail, nil) }

func ErrValidation(detail string) *AppError { return newAppError(KindValidation, detail, nil) }

// ErrInsufficientStock reports the available and requested stock units.
func ErrInsufficientStock(product string, available, requested int) *AppError {
	return newAppError(KindInsufficientStock,
		fmt.Sprintf("Insufficient stock for %s: available %d, requested %d", product, available, requested), nil)
}

// ErrPersistence hides the cause from the caller.
func ErrPersistence(err error) *AppError {
	return newAppError(KindPersistenceFailure, "internal error", err)
}

// KindOf returns the kind of err, or persistence_failure for foreign errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistenceFailure
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// translate maps repository errors onto AppError. AppErrors pass through
// unchanged so it is safe to call on errors returned from a transaction.
func translate(err error, notFoundDetail string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound(notFoundDetail)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return newAppError(KindDuplicate, "resource already exists", err)
	default:
		return ErrPersistence(err)
	}
}
