package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	Email     string `gorm:"primaryKey"`
	Name      string
	Phone     string
	Address   string
	Company   string
	Role      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type PartModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	ImageURL    string
	Price       float64   `gorm:"not null"`
	MinOrderQty int       `gorm:"not null"`
	Available   int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// OrderModel enforces the one-order-per-(product, buyer) invariant with a
// composite unique index, closing the check-then-insert race at the store.
type OrderModel struct {
	ID             string `gorm:"primaryKey"`
	ProductID      string `gorm:"not null;uniqueIndex:idx_orders_product_email"`
	ProductName    string
	Email          string `gorm:"not null;uniqueIndex:idx_orders_product_email"`
	Quantity       int    `gorm:"not null"`
	UnitPrice      float64
	Paid           bool `gorm:"not null"`
	TransactionID  string
	Status         string
	Courier        string
	TrackingNumber string
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

type PaymentModel struct {
	ID            string `gorm:"primaryKey"`
	OrderID       string `gorm:"not null;index"`
	Email         string
	TransactionID string    `gorm:"not null;index"`
	Amount        float64   `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

type ReviewModel struct {
	ID        string `gorm:"primaryKey"`
	Author    string `gorm:"not null"`
	Email     string
	Content   string    `gorm:"not null"`
	Rating    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
