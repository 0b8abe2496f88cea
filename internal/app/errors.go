package app

import "errors"

var (
	// ErrOrderExists is the business-rule rejection for a duplicate
	// (productId, email) order. Not a fault; the existing order is
	// returned alongside it.
	ErrOrderExists = errors.New("order already exist")
	// ErrOrderNotFound indicates the referenced order is absent.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUserNotFound indicates the referenced user is absent.
	ErrUserNotFound = errors.New("user not found")
	// ErrPartNotFound indicates the referenced part is absent.
	ErrPartNotFound = errors.New("part not found")

	ErrEmailRequired         = errors.New("email is required")
	ErrProductIDRequired     = errors.New("productId is required")
	ErrPartNameRequired      = errors.New("part name is required")
	ErrReviewContentRequired = errors.New("review content is required")
	ErrTransactionIDRequired = errors.New("transactionId is required")
	ErrEmptyShippingUpdate   = errors.New("no shipping fields to update")
	ErrPriceRequired         = errors.New("price is required")
)
