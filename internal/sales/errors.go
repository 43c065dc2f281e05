package sales

import (
	"errors"
	"fmt"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/orders"
	"bloom/internal/domain/pricing"
	"bloom/internal/identity"
)

var (
	ErrProductUnavailable           = errors.New("product unavailable")
	ErrVariantUnavailable           = pricing.ErrVariantUnavailable
	ErrWrapperUnavailable           = errors.New("wrapper unavailable")
	ErrAddonUnavailable             = errors.New("addon unavailable")
	ErrItemNotFound                 = carts.ErrItemNotFound
	ErrInvalidTransition            = orders.ErrInvalidTransition
	ErrInsufficientStockOnReinstate = errors.New("insufficient stock to reinstate order")
	ErrOrderNotFound                = orders.ErrOrderNotFound
	ErrNoCartOwner                  = identity.ErrNoCartOwner

	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrForbidden        = errors.New("operation requires an administrator")
	ErrConcurrentUpdate = errors.New("too many concurrent updates, try again")
)

// UnavailableError names the item behind an availability failure. Requested
// and Available are zero when the item is inactive rather than short.
type UnavailableError struct {
	Err       error
	Name      string
	Requested int
	Available int
}

func (e *UnavailableError) Error() string {
	if e.Requested > 0 {
		return fmt.Sprintf("%s: %s (requested %d, available %d)", e.Err, e.Name, e.Requested, e.Available)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Name)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func unavailable(err error, name string) *UnavailableError {
	return &UnavailableError{Err: err, Name: name}
}

func short(err error, name string, requested, available int) *UnavailableError {
	return &UnavailableError{Err: err, Name: name, Requested: requested, Available: max(available, 0)}
}

func isConflict(err error) bool {
	return errors.Is(err, carts.ErrVersionConflict) || errors.Is(err, orders.ErrVersionConflict)
}
