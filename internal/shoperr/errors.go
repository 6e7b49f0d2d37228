package shoperr

import (
	"errors"
	"fmt"
)

// Expected, recoverable conditions. Handlers branch on these and render a
// user-facing message; anything else is treated as an infrastructure failure.
var (
	ErrValidation        = errors.New("validation")
	ErrUnavailable       = errors.New("product unavailable")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrNotFound          = errors.New("not found")
)

// InsufficientStockError names the first product that failed stock validation
// and how many units were actually available.
type InsufficientStockError struct {
	ProductID uint
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: %d available", e.ProductID, e.Available)
}
