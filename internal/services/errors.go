// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrGateway            = errors.New("payment gateway error")
	ErrSignatureInvalid   = errors.New("payment signature verification failed")
	ErrStorage            = errors.New("storage error")
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// ReceiptError reports a receipt that could not be produced for an order
// that is already PAID. The payment itself stands.
type ReceiptError struct {
	OrderID uint
	Err     error
}

func (e *ReceiptError) Error() string {
	return fmt.Sprintf("receipt for order %d: %v", e.OrderID, e.Err)
}

func (e *ReceiptError) Unwrap() error {
	return e.Err
}
