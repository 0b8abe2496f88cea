package app

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"sreindustries/internal/store"
	"sreindustries/internal/token"
	"sreindustries/pkg/domain"
)

const defaultCurrency = "usd"

// PaymentProvider mints an opaque client secret for an amount in the
// currency's minor unit.
type PaymentProvider interface {
	CreateIntent(amountMinor int64, currency string) (string, error)
}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.Store
	Tokens      *token.Codec
	Payments    PaymentProvider
	Currency    string
}

// App wires storage, token issuing, and the payment bridge behind the
// HTTP handlers. It holds no per-request state.
type App struct {
	store    store.Store
	tokens   *token.Codec
	payments PaymentProvider
	currency string
}

// New constructs the application with database storage.
func New(cfg Config) (*App, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	currency := strings.TrimSpace(strings.ToLower(cfg.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return &App{
		store:    dataStore,
		tokens:   cfg.Tokens,
		payments: cfg.Payments,
		currency: currency,
	}, nil
}

// Login upserts the user profile keyed by email and issues a fresh token.
// First-time callers get the default role.
func (a *App) Login(email string, profile domain.User) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.User{}, "", ErrEmailRequired
	}
	now := time.Now().UTC()
	profile.Email = email
	profile.Role = domain.RoleUser
	profile.CreatedAt = now
	profile.UpdatedAt = now
	user, err := a.store.UpsertUser(profile)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("upsert user: %w", err)
	}
	accessToken, err := a.tokens.Issue(user.Email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, accessToken, nil
}

// GetUser returns a user by email.
func (a *App) GetUser(email string) (domain.User, error) {
	user, found, err := a.store.GetUserByEmail(strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns all users.
func (a *App) ListUsers() ([]domain.User, error) {
	return a.store.ListUsers()
}

// GrantAdmin elevates an existing user's role.
func (a *App) GrantAdmin(email string) error {
	ok, err := a.store.SetUserRole(strings.TrimSpace(strings.ToLower(email)), domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// IsAdmin reports whether the stored user holds the admin role. A missing
// user record is a plain non-admin outcome, never an error.
func (a *App) IsAdmin(email string) (bool, error) {
	user, found, err := a.store.GetUserByEmail(strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return false, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return false, nil
	}
	return user.Role == domain.RoleAdmin, nil
}

// CreatePart registers a new part in the catalog.
func (a *App) CreatePart(part domain.Part) (domain.Part, error) {
	if strings.TrimSpace(part.Name) == "" {
		return domain.Part{}, ErrPartNameRequired
	}
	part.ID = uuid.NewString()
	part.CreatedAt = time.Now().UTC()
	if err := a.store.SavePart(part); err != nil {
		return domain.Part{}, fmt.Errorf("save part: %w", err)
	}
	return part, nil
}

// GetPart returns a part by id.
func (a *App) GetPart(id string) (domain.Part, error) {
	part, found, err := a.store.GetPart(id)
	if err != nil {
		return domain.Part{}, fmt.Errorf("fetch part: %w", err)
	}
	if !found {
		return domain.Part{}, ErrPartNotFound
	}
	return part, nil
}

// ListParts returns the catalog.
func (a *App) ListParts() ([]domain.Part, error) {
	return a.store.ListParts()
}

// DeletePart removes a part; deleting an unknown id affects zero rows.
func (a *App) DeletePart(id string) (int64, error) {
	return a.store.DeletePart(id)
}

// CreateReview appends a review. Reviews are never mutated afterwards.
func (a *App) CreateReview(review domain.Review) (domain.Review, error) {
	if strings.TrimSpace(review.Content) == "" {
		return domain.Review{}, ErrReviewContentRequired
	}
	review.ID = uuid.NewString()
	review.CreatedAt = time.Now().UTC()
	if err := a.store.SaveReview(review); err != nil {
		return domain.Review{}, fmt.Errorf("save review: %w", err)
	}
	return review, nil
}

// ListReviews returns all reviews.
func (a *App) ListReviews() ([]domain.Review, error) {
	return a.store.ListReviews()
}

// CreateOrder inserts an order for (productId, email) unless one already
// exists. The existence check is only a fast path for a friendly rejection;
// the store's unique constraint is the hard guarantee, so a racer that
// passes the check still gets ErrOrderExists from the insert.
func (a *App) CreateOrder(order domain.Order) (domain.Order, error) {
	order.Email = strings.TrimSpace(strings.ToLower(order.Email))
	if order.Email == "" {
		return domain.Order{}, ErrEmailRequired
	}
	if strings.TrimSpace(order.ProductID) == "" {
		return domain.Order{}, ErrProductIDRequired
	}

	if existing, found, err := a.store.GetOrderByProductAndEmail(order.ProductID, order.Email); err != nil {
		return domain.Order{}, fmt.Errorf("check existing order: %w", err)
	} else if found {
		return existing, ErrOrderExists
	}

	now := time.Now().UTC()
	order.ID = uuid.NewString()
	order.Paid = false
	order.TransactionID = ""
	order.Status = "pending"
	order.CreatedAt = now
	order.UpdatedAt = now
	if err := a.store.CreateOrder(order); err != nil {
		if errors.Is(err, store.ErrDuplicateOrder) {
			existing, found, lookupErr := a.store.GetOrderByProductAndEmail(order.ProductID, order.Email)
			if lookupErr == nil && found {
				return existing, ErrOrderExists
			}
			return domain.Order{}, ErrOrderExists
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

// GetOrder returns an order by id.
func (a *App) GetOrder(id string) (domain.Order, error) {
	order, found, err := a.store.GetOrder(id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("fetch order: %w", err)
	}
	if !found {
		return domain.Order{}, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns every order in the ledger.
func (a *App) ListOrders() ([]domain.Order, error) {
	return a.store.ListOrders()
}

// ListOrdersByEmail returns orders owned by the given email.
func (a *App) ListOrdersByEmail(email string) ([]domain.Order, error) {
	return a.store.ListOrdersByEmail(strings.TrimSpace(strings.ToLower(email)))
}

// MarkOrderPaid records the payment and transitions the order to paid.
// The store applies both writes atomically.
func (a *App) MarkOrderPaid(orderID, transactionID string, amount float64) (domain.Order, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.Order{}, ErrTransactionIDRequired
	}
	order, found, err := a.store.GetOrder(orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("fetch order: %w", err)
	}
	if !found {
		return domain.Order{}, ErrOrderNotFound
	}
	payment := domain.Payment{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		Email:         order.Email,
		TransactionID: transactionID,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}
	updated, found, err := a.store.MarkOrderPaid(order.ID, payment)
	if err != nil {
		return domain.Order{}, fmt.Errorf("mark order paid: %w", err)
	}
	if !found {
		return domain.Order{}, ErrOrderNotFound
	}
	return updated, nil
}

// UpdateShipping merges allow-listed shipping fields into the order.
func (a *App) UpdateShipping(orderID string, update domain.ShippingUpdate) (domain.Order, error) {
	if update.IsEmpty() {
		return domain.Order{}, ErrEmptyShippingUpdate
	}
	order, found, err := a.store.UpdateShipping(orderID, update)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update shipping: %w", err)
	}
	if !found {
		return domain.Order{}, ErrOrderNotFound
	}
	return order, nil
}

// DeleteOrder removes an order; deleting an unknown id affects zero rows.
func (a *App) DeleteOrder(id string) (int64, error) {
	return a.store.DeleteOrder(id)
}

// CreatePaymentIntent converts the price to the currency's minor unit and
// asks the provider for a client secret. Validation beyond that is
// delegated to the provider; its rejections surface unchanged.
func (a *App) CreatePaymentIntent(price float64) (string, error) {
	if a.payments == nil {
		return "", fmt.Errorf("payment provider not configured")
	}
	if price == 0 {
		return "", ErrPriceRequired
	}
	amountMinor := int64(math.Round(price * 100))
	return a.payments.CreateIntent(amountMinor, a.currency)
}
