package store

import (
	"errors"

	"sreindustries/pkg/domain"
)

// ErrDuplicateOrder is returned when an insert hits the (product_id, email)
// uniqueness constraint. The constraint is the hard guarantee; the
// application-level existence check is only a fast path.
var ErrDuplicateOrder = errors.New("duplicate order")

// Store defines persistence operations for users, parts, orders, payments,
// and reviews. Implementations must provide per-document atomicity; the
// paid-transition pair of writes must be applied atomically.
type Store interface {
	// users
	UpsertUser(domain.User) (domain.User, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	SetUserRole(email string, role domain.UserRole) (bool, error)

	// parts
	SavePart(domain.Part) error
	GetPart(id string) (domain.Part, bool, error)
	ListParts() ([]domain.Part, error)
	DeletePart(id string) (int64, error)

	// reviews
	SaveReview(domain.Review) error
	ListReviews() ([]domain.Review, error)

	// orders
	CreateOrder(domain.Order) error
	GetOrder(id string) (domain.Order, bool, error)
	GetOrderByProductAndEmail(productID, email string) (domain.Order, bool, error)
	ListOrders() ([]domain.Order, error)
	ListOrdersByEmail(email string) ([]domain.Order, error)
	MarkOrderPaid(orderID string, payment domain.Payment) (domain.Order, bool, error)
	UpdateShipping(orderID string, update domain.ShippingUpdate) (domain.Order, bool, error)
	DeleteOrder(id string) (int64, error)

	// payments
	GetPaymentByTransactionID(transactionID string) (domain.Payment, bool, error)
}
