package application

import "errors"

var (
	ErrCartEmpty          = errors.New("cart is empty")
	ErrInvalidMethod      = errors.New("unsupported payment method")
	ErrProductNotFound    = errors.New("product no longer exists")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrSellerUnresolved   = errors.New("seller cannot be resolved")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrOrderNotFound      = errors.New("order not found")
	ErrForbidden          = errors.New("not allowed")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrNotCancellable     = errors.New("order cannot be cancelled at this stage")
	ErrSignatureMismatch  = errors.New("payment signature verification failed")
)
