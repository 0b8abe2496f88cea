package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"sreindustries/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. TranslateError is
// enabled so the composite unique index on orders surfaces as
// gorm.ErrDuplicatedKey instead of a raw driver error.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &PartModel{}, &OrderModel{}, &PaymentModel{}, &ReviewModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// UpsertUser creates the user on first write and updates profile fields on
// subsequent writes. The stored role is never changed by a profile upsert.
func (s *GormStore) UpsertUser(u domain.User) (domain.User, error) {
	model := userToModel(u)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "address", "company", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return domain.User{}, err
	}
	stored, found, err := s.GetUserByEmail(u.Email)
	if err != nil {
		return domain.User{}, err
	}
	if !found {
		return domain.User{}, fmt.Errorf("upserted user %s not found", u.Email)
	}
	return stored, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// SetUserRole updates the stored role. Returns false when no such user.
func (s *GormStore) SetUserRole(email string, role domain.UserRole) (bool, error) {
	tx := s.db.Model(&UserModel{}).
		Where("email = ?", email).
		Updates(map[string]any{
			"role":       string(role),
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// SavePart stores a part.
func (s *GormStore) SavePart(p domain.Part) error {
	model := partToModel(p)
	return s.db.Create(&model).Error
}

// GetPart retrieves a part by ID.
func (s *GormStore) GetPart(id string) (domain.Part, bool, error) {
	var model PartModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Part{}, false, nil
		}
		return domain.Part{}, false, err
	}
	return partFromModel(model), true, nil
}

// ListParts returns all parts ordered by created_at.
func (s *GormStore) ListParts() ([]domain.Part, error) {
	var models []PartModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Part, 0, len(models))
	for _, m := range models {
		res = append(res, partFromModel(m))
	}
	return res, nil
}

// DeletePart removes a part, returning the affected count.
func (s *GormStore) DeletePart(id string) (int64, error) {
	tx := s.db.Delete(&PartModel{}, "id = ?", id)
	return tx.RowsAffected, tx.Error
}

// SaveReview appends a review. Reviews are never mutated.
func (s *GormStore) SaveReview(r domain.Review) error {
	model := reviewToModel(r)
	return s.db.Create(&model).Error
}

// ListReviews returns all reviews ordered by created_at.
func (s *GormStore) ListReviews() ([]domain.Review, error) {
	var models []ReviewModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Review, 0, len(models))
	for _, m := range models {
		res = append(res, reviewFromModel(m))
	}
	return res, nil
}

// CreateOrder inserts a new order. A unique-index hit maps to
// ErrDuplicateOrder so callers can report the business rejection.
func (s *GormStore) CreateOrder(o domain.Order) error {
	model := orderToModel(o)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateOrder
		}
		return err
	}
	return nil
}

// GetOrder retrieves an order by ID.
func (s *GormStore) GetOrder(id string) (domain.Order, bool, error) {
	var model OrderModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, err
	}
	return orderFromModel(model), true, nil
}

// GetOrderByProductAndEmail looks up the order for an exact
// (productId, email) pair.
func (s *GormStore) GetOrderByProductAndEmail(productID, email string) (domain.Order, bool, error) {
	var model OrderModel
	err := s.db.First(&model, "product_id = ? AND email = ?", productID, email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, err
	}
	return orderFromModel(model), true, nil
}

// ListOrders returns all orders ordered by created_at.
func (s *GormStore) ListOrders() ([]domain.Order, error) {
	return s.listOrders()
}

// ListOrdersByEmail returns orders owned by the given email.
func (s *GormStore) ListOrdersByEmail(email string) ([]domain.Order, error) {
	return s.listOrders("email = ?", email)
}

func (s *GormStore) listOrders(conds ...any) ([]domain.Order, error) {
	var models []OrderModel
	tx := s.db.Order("created_at ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Order, 0, len(models))
	for _, m := range models {
		res = append(res, orderFromModel(m))
	}
	return res, nil
}

// MarkOrderPaid records the payment and flips the order to paid in one
// transaction, so a payment row can never exist next to an unpaid order.
func (s *GormStore) MarkOrderPaid(orderID string, payment domain.Payment) (domain.Order, bool, error) {
	var updated OrderModel
	found := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order OrderModel
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true
		payModel := paymentToModel(payment)
		payModel.OrderID = orderID
		if err := tx.Create(&payModel).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := tx.Model(&OrderModel{}).
			Where("id = ?", orderID).
			Updates(map[string]any{
				"paid":           true,
				"transaction_id": payment.TransactionID,
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}
		order.Paid = true
		order.TransactionID = payment.TransactionID
		order.UpdatedAt = now
		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, false, err
	}
	if !found {
		return domain.Order{}, false, nil
	}
	return orderFromModel(updated), true, nil
}

// UpdateShipping merges allow-listed shipping fields into the order.
func (s *GormStore) UpdateShipping(orderID string, update domain.ShippingUpdate) (domain.Order, bool, error) {
	fields := map[string]any{"updated_at": time.Now().UTC()}
	if update.Status != "" {
		fields["status"] = update.Status
	}
	if update.Courier != "" {
		fields["courier"] = update.Courier
	}
	if update.TrackingNumber != "" {
		fields["tracking_number"] = update.TrackingNumber
	}
	tx := s.db.Model(&OrderModel{}).Where("id = ?", orderID).Updates(fields)
	if tx.Error != nil {
		return domain.Order{}, false, tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.Order{}, false, nil
	}
	return s.GetOrder(orderID)
}

// DeleteOrder removes an order, returning the affected count. Deleting a
// nonexistent id returns zero, not an error.
func (s *GormStore) DeleteOrder(id string) (int64, error) {
	tx := s.db.Delete(&OrderModel{}, "id = ?", id)
	return tx.RowsAffected, tx.Error
}

// GetPaymentByTransactionID looks up a payment record.
func (s *GormStore) GetPaymentByTransactionID(transactionID string) (domain.Payment, bool, error) {
	var model PaymentModel
	err := s.db.First(&model, "transaction_id = ?", transactionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payment{}, false, nil
		}
		return domain.Payment{}, false, err
	}
	return paymentFromModel(model), true, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Address:   u.Address,
		Company:   u.Company,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		Email:     m.Email,
		Name:      m.Name,
		Phone:     m.Phone,
		Address:   m.Address,
		Company:   m.Company,
		Role:      domain.UserRole(m.Role),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func partToModel(p domain.Part) PartModel {
	return PartModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		MinOrderQty: p.MinOrderQty,
		Available:   p.Available,
		CreatedAt:   p.CreatedAt,
	}
}

func partFromModel(m PartModel) domain.Part {
	return domain.Part{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		Price:       m.Price,
		MinOrderQty: m.MinOrderQty,
		Available:   m.Available,
		CreatedAt:   m.CreatedAt,
	}
}

func orderToModel(o domain.Order) OrderModel {
	return OrderModel{
		ID:             o.ID,
		ProductID:      o.ProductID,
		ProductName:    o.ProductName,
		Email:          o.Email,
		Quantity:       o.Quantity,
		UnitPrice:      o.UnitPrice,
		Paid:           o.Paid,
		TransactionID:  o.TransactionID,
		Status:         o.Status,
		Courier:        o.Courier,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func orderFromModel(m OrderModel) domain.Order {
	return domain.Order{
		ID:             m.ID,
		ProductID:      m.ProductID,
		ProductName:    m.ProductName,
		Email:          m.Email,
		Quantity:       m.Quantity,
		UnitPrice:      m.UnitPrice,
		Paid:           m.Paid,
		TransactionID:  m.TransactionID,
		Status:         m.Status,
		Courier:        m.Courier,
		TrackingNumber: m.TrackingNumber,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func paymentToModel(p domain.Payment) PaymentModel {
	return PaymentModel{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Email:         p.Email,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		CreatedAt:     p.CreatedAt,
	}
}

func paymentFromModel(m PaymentModel) domain.Payment {
	return domain.Payment{
		ID:            m.ID,
		OrderID:       m.OrderID,
		Email:         m.Email,
		TransactionID: m.TransactionID,
		Amount:        m.Amount,
		CreatedAt:     m.CreatedAt,
	}
}

func reviewToModel(r domain.Review) ReviewModel {
	return ReviewModel{
		ID:        r.ID,
		Author:    r.Author,
		Email:     r.Email,
		Content:   r.Content,
		Rating:    r.Rating,
		CreatedAt: r.CreatedAt,
	}
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{
		ID:        m.ID,
		Author:    m.Author,
		Email:     m.Email,
		Content:   m.Content,
		Rating:    m.Rating,
		CreatedAt: m.CreatedAt,
	}
}
