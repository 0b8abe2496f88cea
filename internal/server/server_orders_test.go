package server

import (
	"net/http"
	"testing"

	"sreindustries/pkg/domain"
)

func TestOrderLifecycle(t *testing.T) {
	ts, mem := newTestServer(t)
	buyerToken := loginAs(t, ts, "buyer@example.com")
	otherToken := loginAs(t, ts, "other@example.com")

	orderBody := map[string]any{
		"productId":   "p1",
		"productName": "hex bolt",
		"quantity":    500,
		"unitPrice":   0.35,
	}

	// First order for (p1, buyer) succeeds.
	resp := doJSON(t, http.MethodPost, ts.URL+"/orders", buyerToken, orderBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		Success bool          `json:"success"`
		Order   *domain.Order `json:"order"`
	}
	decodeBody(t, resp, &created)
	if !created.Success || created.Order == nil || created.Order.ID == "" {
		t.Fatalf("create order response: %+v", created)
	}
	orderID := created.Order.ID

	// A second order for the same product and buyer is rejected with the
	// original order attached.
	resp = doJSON(t, http.MethodPost, ts.URL+"/orders", buyerToken, orderBody)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate order expected 409, got %d", resp.StatusCode)
	}
	var dup struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Order   *domain.Order `json:"order"`
	}
	decodeBody(t, resp, &dup)
	if dup.Success {
		t.Fatalf("duplicate must report success=false")
	}
	if dup.Message != "Order already exist" {
		t.Fatalf("duplicate message = %q", dup.Message)
	}
	if dup.Order == nil || dup.Order.ID != orderID {
		t.Fatalf("duplicate must carry the existing order: %+v", dup.Order)
	}

	// A different buyer may order the same product.
	resp = doJSON(t, http.MethodPost, ts.URL+"/orders", otherToken, orderBody)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("other buyer expected 201, got %d", resp.StatusCode)
	}

	// Owner lists their orders.
	resp = doJSON(t, http.MethodGet, ts.URL+"/orders/buyer@example.com", buyerToken, nil)
	var listing struct {
		Items []domain.Order `json:"items"`
		Count int            `json:"count"`
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list own orders expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &listing)
	if listing.Count != 1 {
		t.Fatalf("buyer order count = %d, want 1", listing.Count)
	}

	// Another user may not read the buyer's orders.
	resp = doJSON(t, http.MethodGet, ts.URL+"/orders/buyer@example.com", otherToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign listing expected 403, got %d", resp.StatusCode)
	}

	// Payment settles the order.
	resp = doJSON(t, http.MethodPatch, ts.URL+"/orders/"+orderID, buyerToken, map[string]any{
		"transactionId": "tx-777",
		"amount":        175.0,
	})
	var paid domain.Order
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark paid expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &paid)
	if !paid.Paid || paid.TransactionID != "tx-777" {
		t.Fatalf("order not settled: %+v", paid)
	}
	if _, found, _ := mem.GetPaymentByTransactionID("tx-777"); !found {
		t.Fatalf("payment record missing")
	}

	// Single-order lookup for the owner.
	resp = doJSON(t, http.MethodGet, ts.URL+"/order/"+orderID, buyerToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("order lookup expected 200, got %d", resp.StatusCode)
	}

	// Delete is idempotent.
	resp = doJSON(t, http.MethodDelete, ts.URL+"/orders/"+orderID, buyerToken, nil)
	var deleted struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	decodeBody(t, resp, &deleted)
	if deleted.DeletedCount != 1 {
		t.Fatalf("first delete count = %d, want 1", deleted.DeletedCount)
	}
	resp = doJSON(t, http.MethodDelete, ts.URL+"/orders/"+orderID, buyerToken, nil)
	decodeBody(t, resp, &deleted)
	if deleted.DeletedCount != 0 {
		t.Fatalf("second delete count = %d, want 0", deleted.DeletedCount)
	}
}

func TestOrderLedgerIsAdminOnly(t *testing.T) {
	ts, mem := newTestServer(t)
	buyerToken := loginAs(t, ts, "buyer@example.com")

	resp := doJSON(t, http.MethodGet, ts.URL+"/orders", buyerToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin ledger read expected 403, got %d", resp.StatusCode)
	}

	if _, err := mem.SetUserRole("buyer@example.com", domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/orders", buyerToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin ledger read expected 200, got %d", resp.StatusCode)
	}
}

func TestShippingUpdateIsAdminOnlyAndAllowListed(t *testing.T) {
	ts, mem := newTestServer(t)
	buyerToken := loginAs(t, ts, "buyer@example.com")
	adminToken := loginAs(t, ts, "ops@example.com")
	if _, err := mem.SetUserRole("ops@example.com", domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/orders", buyerToken, map[string]any{
		"productId": "p1",
	})
	var created struct {
		Order *domain.Order `json:"order"`
	}
	decodeBody(t, resp, &created)
	orderID := created.Order.ID

	// The owner may not drive shipping state.
	resp = doJSON(t, http.MethodPut, ts.URL+"/orders/"+orderID, buyerToken, map[string]any{
		"status": "shipped",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("owner shipping update expected 403, got %d", resp.StatusCode)
	}

	// An empty update is rejected.
	resp = doJSON(t, http.MethodPut, ts.URL+"/orders/"+orderID, adminToken, map[string]any{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty shipping update expected 400, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/orders/"+orderID, adminToken, map[string]any{
		"status":         "shipped",
		"courier":        "dhl",
		"trackingNumber": "JD0001",
	})
	var updated domain.Order
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("shipping update expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &updated)
	if updated.Status != "shipped" || updated.Courier != "dhl" || updated.TrackingNumber != "JD0001" {
		t.Fatalf("shipping fields not applied: %+v", updated)
	}
}
