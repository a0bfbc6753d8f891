package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBlocked     = errors.New("account blocked")
	ErrLastAdmin          = errors.New("cannot demote the last admin")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNoRecipients       = errors.New("no recipients configured")
	ErrTripArchived       = errors.New("trip archived")
	ErrExportNotAllowed   = errors.New("export restricted to agency DPL")
	ErrDeliveryFailed     = errors.New("notification delivery failed")
)

// ValidationError 表单/参数校验失败，Msg 为可直接展示给用户的提示
type ValidationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

func NewValidationError(field, value, msg string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Msg: msg}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
