package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired     = errors.New("auth required")
	ErrValidation       = errors.New("validation error")
	ErrGateway          = errors.New("payment gateway error")
	ErrPersistence      = errors.New("persistence error")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrPaymentNotFound  = errors.New("payment not found")

	ErrNotFound         = errors.New("not found")
	ErrDuplicateRequest = errors.New("duplicate idempotency key")
)

// Validation failures wrap ErrValidation so callers can match either.
var (
	ErrEmptyCart        = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrInvalidPromoCode = fmt.Errorf("%w: invalid promo code", ErrValidation)
	ErrInvalidQuantity  = fmt.Errorf("%w: invalid quantity", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
)
