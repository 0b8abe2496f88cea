package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"sreindustries/internal/app"
	"sreindustries/internal/payment"
	"sreindustries/internal/token"
	"sreindustries/pkg/domain"
)

// /orders: the full ledger is admin-only, placing an order needs a token.
func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		orders, err := s.app.ListOrders()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": orders,
			"count": len(orders),
		})
	case http.MethodPost:
		claims, ok := s.requireToken(w, r)
		if !ok {
			return
		}
		s.handleCreateOrder(w, r, claims)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request, claims token.Claims) {
	var req createOrderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// The owner is always the authenticated caller, never the body.
	order, err := s.app.CreateOrder(domain.Order{
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Email:       claims.Email,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
	})
	if errors.Is(err, app.ErrOrderExists) {
		s.audit(r, "shop.order.create", "fail", "email", claims.Email, "product_id", req.ProductID, "reason", "duplicate")
		writeJSON(w, http.StatusConflict, orderResponse{
			Success: false,
			Message: "Order already exist",
			Order:   &order,
		})
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.audit(r, "shop.order.create", "success", "email", claims.Email, "order_id", order.ID)
	writeJSON(w, http.StatusCreated, orderResponse{
		Success: true,
		Order:   &order,
	})
}

// /orders/{email} on GET, /orders/{id} on PATCH/PUT/DELETE.
func (s *Server) handleOrderByPath(w http.ResponseWriter, r *http.Request, claims token.Claims) {
	param := strings.TrimPrefix(r.URL.Path, "/orders/")
	if param == "" || strings.Contains(param, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleListOrdersByEmail(w, r, claims, param)
	case http.MethodPatch:
		s.handleMarkOrderPaid(w, r, claims, param)
	case http.MethodPut:
		s.handleUpdateShipping(w, r, claims, param)
	case http.MethodDelete:
		s.handleDeleteOrder(w, r, claims, param)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListOrdersByEmail(w http.ResponseWriter, r *http.Request, claims token.Claims, email string) {
	if !s.ownerOrAdmin(w, r, claims, email) {
		return
	}
	orders, err := s.app.ListOrdersByEmail(email)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": orders,
		"count": len(orders),
	})
}

func (s *Server) handleMarkOrderPaid(w http.ResponseWriter, r *http.Request, claims token.Claims, id string) {
	var req markPaidRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	order, err := s.app.GetOrder(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !s.ownerOrAdmin(w, r, claims, order.Email) {
		return
	}
	updated, err := s.app.MarkOrderPaid(id, req.TransactionID, req.Amount)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.audit(r, "shop.order.paid", "success", "email", claims.Email, "order_id", id, "transaction_id", req.TransactionID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleUpdateShipping(w http.ResponseWriter, r *http.Request, claims token.Claims, id string) {
	isAdmin, err := s.app.IsAdmin(claims.Email)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !isAdmin {
		s.audit(r, "shop.order.ship", "fail", "email", claims.Email, "reason", "forbidden")
		writeError(w, http.StatusForbidden, "forbidden access")
		return
	}
	var req shippingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := s.app.UpdateShipping(id, domain.ShippingUpdate{
		Status:         req.Status,
		Courier:        req.Courier,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.audit(r, "shop.order.ship", "success", "email", claims.Email, "order_id", id)
	writeJSON(w, http.StatusOK, updated)
}

// Deletes are idempotent: an already-removed order reports zero affected
// rows rather than an error.
func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request, claims token.Claims, id string) {
	order, err := s.app.GetOrder(id)
	if errors.Is(err, app.ErrOrderNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"deletedCount": int64(0)})
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !s.ownerOrAdmin(w, r, claims, order.Email) {
		return
	}
	affected, err := s.app.DeleteOrder(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.audit(r, "shop.order.delete", "success", "email", claims.Email, "order_id", id, "affected", affected)
	writeJSON(w, http.StatusOK, map[string]any{"deletedCount": affected})
}

// /order/{id}
func (s *Server) handleOrderLookup(w http.ResponseWriter, r *http.Request, claims token.Claims) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/order/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	order, err := s.app.GetOrder(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !s.ownerOrAdmin(w, r, claims, order.Email) {
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// /create-payment-intent
func (s *Server) handlePaymentIntent(w http.ResponseWriter, r *http.Request, claims token.Claims) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req paymentIntentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	clientSecret, err := s.app.CreatePaymentIntent(req.Price)
	if err != nil {
		var apiErr *payment.APIError
		if errors.As(err, &apiErr) {
			writeError(w, apiErr.Status, apiErr.Message)
			return
		}
		writeAppError(w, err)
		return
	}
	s.audit(r, "shop.payment.intent", "success", "email", claims.Email)
	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": clientSecret})
}

// ownerOrAdmin allows the resource owner through directly; anyone else must
// hold the admin role.
func (s *Server) ownerOrAdmin(w http.ResponseWriter, r *http.Request, claims token.Claims, ownerEmail string) bool {
	if strings.EqualFold(claims.Email, ownerEmail) {
		return true
	}
	isAdmin, err := s.app.IsAdmin(claims.Email)
	if err != nil {
		writeAppError(w, err)
		return false
	}
	if !isAdmin {
		s.audit(r, "shop.owner.authorize", "fail", "email", claims.Email, "owner", ownerEmail)
		writeError(w, http.StatusForbidden, "forbidden access")
		return false
	}
	return true
}

type createOrderRequest struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type orderResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Order   *domain.Order `json:"order,omitempty"`
}

type markPaidRequest struct {
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
}

type shippingRequest struct {
	Status         string `json:"status"`
	Courier        string `json:"courier"`
	TrackingNumber string `json:"trackingNumber"`
}

type paymentIntentRequest struct {
	Price float64 `json:"price"`
}
