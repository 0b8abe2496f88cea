package store

import (
	"sync"
	"time"

	"sreindustries/pkg/domain"
)

type orderKey struct {
	productID string
	email     string
}

// MemoryStore is an in-process Store used by tests. It enforces the same
// (productId, email) uniqueness as the Postgres unique index and applies
// the paid-transition writes under a single lock.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User // key: email
	userOrder []string
	parts     map[string]domain.Part
	partOrder []string
	orders    map[string]domain.Order
	orderKeys map[orderKey]string // (productId, email) -> order ID
	orderList []string
	payments  []domain.Payment
	reviews   []domain.Review
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		parts:     make(map[string]domain.Part),
		orders:    make(map[string]domain.Order),
		orderKeys: make(map[orderKey]string),
	}
}

// UpsertUser creates or updates the profile; the stored role is preserved.
func (m *MemoryStore) UpsertUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.Email]
	if ok {
		existing.Name = u.Name
		existing.Phone = u.Phone
		existing.Address = u.Address
		existing.Company = u.Company
		existing.UpdatedAt = u.UpdatedAt
		m.users[u.Email] = existing
		return existing, nil
	}
	m.users[u.Email] = u
	m.userOrder = append(m.userOrder, u.Email)
	return u, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	return u, ok, nil
}

// ListUsers returns users in insertion order.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.userOrder))
	for _, email := range m.userOrder {
		if u, ok := m.users[email]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

// SetUserRole updates the stored role when the user exists.
func (m *MemoryStore) SetUserRole(email string, role domain.UserRole) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return false, nil
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	m.users[email] = u
	return true, nil
}

// SavePart stores a part.
func (m *MemoryStore) SavePart(p domain.Part) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.parts[p.ID]; !exists {
		m.partOrder = append(m.partOrder, p.ID)
	}
	m.parts[p.ID] = p
	return nil
}

// GetPart retrieves a part by ID.
func (m *MemoryStore) GetPart(id string) (domain.Part, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parts[id]
	return p, ok, nil
}

// ListParts returns parts in insertion order.
func (m *MemoryStore) ListParts() ([]domain.Part, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Part, 0, len(m.partOrder))
	for _, id := range m.partOrder {
		if p, ok := m.parts[id]; ok {
			res = append(res, p)
		}
	}
	return res, nil
}

// DeletePart removes a part, returning the affected count.
func (m *MemoryStore) DeletePart(id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.parts[id]; !ok {
		return 0, nil
	}
	delete(m.parts, id)
	filtered := m.partOrder[:0]
	for _, item := range m.partOrder {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.partOrder = filtered
	return 1, nil
}

// SaveReview appends a review.
func (m *MemoryStore) SaveReview(r domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, r)
	return nil
}

// ListReviews returns reviews in insertion order.
func (m *MemoryStore) ListReviews() ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Review, len(m.reviews))
	copy(res, m.reviews)
	return res, nil
}

// CreateOrder inserts an order, enforcing (productId, email) uniqueness.
func (m *MemoryStore) CreateOrder(o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := orderKey{productID: o.ProductID, email: o.Email}
	if _, exists := m.orderKeys[key]; exists {
		return ErrDuplicateOrder
	}
	m.orders[o.ID] = o
	m.orderKeys[key] = o.ID
	m.orderList = append(m.orderList, o.ID)
	return nil
}

// GetOrder retrieves an order by ID.
func (m *MemoryStore) GetOrder(id string) (domain.Order, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	return o, ok, nil
}

// GetOrderByProductAndEmail looks up the order for an exact pair.
func (m *MemoryStore) GetOrderByProductAndEmail(productID, email string) (domain.Order, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.orderKeys[orderKey{productID: productID, email: email}]
	if !ok {
		return domain.Order{}, false, nil
	}
	o, exists := m.orders[id]
	return o, exists, nil
}

// ListOrders returns all orders in insertion order.
func (m *MemoryStore) ListOrders() ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Order, 0, len(m.orderList))
	for _, id := range m.orderList {
		if o, ok := m.orders[id]; ok {
			res = append(res, o)
		}
	}
	return res, nil
}

// ListOrdersByEmail returns orders owned by the given email.
func (m *MemoryStore) ListOrdersByEmail(email string) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Order, 0, len(m.orderList))
	for _, id := range m.orderList {
		if o, ok := m.orders[id]; ok && o.Email == email {
			res = append(res, o)
		}
	}
	return res, nil
}

// MarkOrderPaid applies the payment insert and the paid flip under one lock.
func (m *MemoryStore) MarkOrderPaid(orderID string, payment domain.Payment) (domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, false, nil
	}
	payment.OrderID = orderID
	m.payments = append(m.payments, payment)
	o.Paid = true
	o.TransactionID = payment.TransactionID
	o.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = o
	return o, true, nil
}

// UpdateShipping merges allow-listed shipping fields into the order.
func (m *MemoryStore) UpdateShipping(orderID string, update domain.ShippingUpdate) (domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, false, nil
	}
	if update.Status != "" {
		o.Status = update.Status
	}
	if update.Courier != "" {
		o.Courier = update.Courier
	}
	if update.TrackingNumber != "" {
		o.TrackingNumber = update.TrackingNumber
	}
	o.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = o
	return o, true, nil
}

// DeleteOrder removes an order, returning the affected count.
func (m *MemoryStore) DeleteOrder(id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return 0, nil
	}
	delete(m.orders, id)
	delete(m.orderKeys, orderKey{productID: o.ProductID, email: o.Email})
	filtered := m.orderList[:0]
	for _, item := range m.orderList {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.orderList = filtered
	return 1, nil
}

// GetPaymentByTransactionID looks up a payment record.
func (m *MemoryStore) GetPaymentByTransactionID(transactionID string) (domain.Payment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.TransactionID == transactionID {
			return p, true, nil
		}
	}
	return domain.Payment{}, false, nil
}
