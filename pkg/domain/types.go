package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is keyed by email; created or updated on first login.
type User struct {
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Company   string    `json:"company,omitempty"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Part struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Price       float64   `json:"price"`
	MinOrderQty int       `json:"minOrderQty"`
	Available   int       `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Order carries the per-(productId, email) uniqueness invariant.
type Order struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"productId"`
	ProductName    string    `json:"productName,omitempty"`
	Email          string    `json:"email"`
	Quantity       int       `json:"quantity"`
	UnitPrice      float64   `json:"unitPrice"`
	Paid           bool      `json:"paid"`
	TransactionID  string    `json:"transactionId,omitempty"`
	Status         string    `json:"status,omitempty"`
	Courier        string    `json:"courier,omitempty"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Payment is append-only; one row per paid-transition.
type Payment struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"orderId"`
	Email         string    `json:"email"`
	TransactionID string    `json:"transactionId"`
	Amount        float64   `json:"amount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Review struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Email     string    `json:"email,omitempty"`
	Content   string    `json:"content"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// ShippingUpdate is the allow-list of order fields a shipping status
// update may touch. Empty fields are left unchanged.
type ShippingUpdate struct {
	Status         string `json:"status,omitempty"`
	Courier        string `json:"courier,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u ShippingUpdate) IsEmpty() bool {
	return u.Status == "" && u.Courier == "" && u.TrackingNumber == ""
}
