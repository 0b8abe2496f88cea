package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateIntentReturnsClientSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("authorization header = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("amount"); got != "4500" {
			t.Errorf("amount = %q, want 4500", got)
		}
		if got := r.PostForm.Get("currency"); got != "usd" {
			t.Errorf("currency = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":            "pi_1",
			"client_secret": "pi_1_secret_abc",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_123")
	secret, err := client.CreateIntent(4500, "usd")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if secret != "pi_1_secret_abc" {
		t.Fatalf("client secret = %q", secret)
	}
}

func TestCreateIntentSurfacesProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "Amount must be at least 50 cents"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_123")
	_, err := client.CreateIntent(-100, "usd")
	if err == nil {
		t.Fatalf("expected provider rejection")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", apiErr.Status)
	}
	if apiErr.Message != "Amount must be at least 50 cents" {
		t.Fatalf("message = %q, want provider message unchanged", apiErr.Message)
	}
}
