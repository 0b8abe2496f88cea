package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"sreindustries/internal/app"
	"sreindustries/internal/store"
	"sreindustries/internal/token"
	"sreindustries/pkg/domain"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	codec, err := token.NewCodec(token.Options{Secret: testSecret})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	mem := store.NewMemoryStore()
	application, err := app.New(app.Config{
		Store:  mem,
		Tokens: codec,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{
		App:    application,
		Tokens: codec,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, mem
}

func doJSON(t *testing.T, method, url, bearer string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func loginAs(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/login", "", map[string]string{
		"email": email,
		"name":  "Test User",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	if body.Token == "" {
		t.Fatalf("login %s: empty token", email)
	}
	return body.Token
}

func mustSignExpiredToken(t *testing.T, email string) string {
	t.Helper()
	now := time.Now().UTC()
	claims := token.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sre-industries",
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now.Add(-3 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-2 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	return signed
}

// spyStore counts reads so tests can assert a rejected request never
// reached storage.
type spyStore struct {
	store.Store
	listUserCalls int32
}

func (s *spyStore) ListUsers() ([]domain.User, error) {
	atomic.AddInt32(&s.listUserCalls, 1)
	return s.Store.ListUsers()
}

func TestProtectedRouteDistinguishesMissingFromInvalidToken(t *testing.T) {
	codec, err := token.NewCodec(token.Options{Secret: testSecret})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	spy := &spyStore{Store: store.NewMemoryStore()}
	application, err := app.New(app.Config{Store: spy, Tokens: codec})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{App: application, Tokens: codec})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	accessToken := loginAs(t, ts, "buyer@example.com")

	// Missing credential: rejected before any storage read.
	resp := doJSON(t, http.MethodGet, ts.URL+"/users", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token expected 401, got %d", resp.StatusCode)
	}
	if calls := atomic.LoadInt32(&spy.listUserCalls); calls != 0 {
		t.Fatalf("rejected request reached the store: %d calls", calls)
	}

	// Presented but unverifiable credential.
	resp = doJSON(t, http.MethodGet, ts.URL+"/users", "not-a-jwt", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("garbage token expected 403, got %d", resp.StatusCode)
	}

	// Expired credential.
	resp = doJSON(t, http.MethodGet, ts.URL+"/users", mustSignExpiredToken(t, "buyer@example.com"), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expired token expected 403, got %d", resp.StatusCode)
	}

	// Valid credential.
	resp = doJSON(t, http.MethodGet, ts.URL+"/users", accessToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid token expected 200, got %d", resp.StatusCode)
	}
	if calls := atomic.LoadInt32(&spy.listUserCalls); calls != 1 {
		t.Fatalf("accepted request should reach the store once, got %d calls", calls)
	}
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	ts, mem := newTestServer(t)
	userToken := loginAs(t, ts, "buyer@example.com")

	part := map[string]any{"name": "hex bolt", "price": 0.35}
	resp := doJSON(t, http.MethodPost, ts.URL+"/parts", userToken, part)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin POST /parts expected 403, got %d", resp.StatusCode)
	}

	// The role lives in the user record, so elevating it takes effect on
	// the next request without reissuing the token.
	if _, err := mem.SetUserRole("buyer@example.com", domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	resp = doJSON(t, http.MethodPost, ts.URL+"/parts", userToken, part)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin POST /parts expected 201, got %d", resp.StatusCode)
	}
}

func TestAdminCheckIsPublicAndBoolean(t *testing.T) {
	ts, mem := newTestServer(t)
	loginAs(t, ts, "buyer@example.com")

	resp := doJSON(t, http.MethodGet, ts.URL+"/admin/buyer@example.com", "", nil)
	var probe struct {
		Admin bool `json:"admin"`
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin check expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &probe)
	if probe.Admin {
		t.Fatalf("fresh user must not be admin")
	}

	if _, err := mem.SetUserRole("buyer@example.com", domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/admin/buyer@example.com", "", nil)
	decodeBody(t, resp, &probe)
	if !probe.Admin {
		t.Fatalf("expected admin=true after role grant")
	}

	// Unknown emails are plain non-admins, not errors.
	resp = doJSON(t, http.MethodGet, ts.URL+"/admin/ghost@example.com", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unknown email expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &probe)
	if probe.Admin {
		t.Fatalf("unknown email must not be admin")
	}
}

func TestGrantAdminEndpoint(t *testing.T) {
	ts, mem := newTestServer(t)
	bossToken := loginAs(t, ts, "boss@example.com")
	staffToken := loginAs(t, ts, "staff@example.com")
	if _, err := mem.SetUserRole("boss@example.com", domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}

	// Before the grant, the staff token is rejected on admin surfaces.
	part := map[string]any{"name": "flange", "price": 12.5}
	resp := doJSON(t, http.MethodPost, ts.URL+"/parts", staffToken, part)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("pre-grant POST /parts expected 403, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/users/admin/staff@example.com", bossToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("grant admin expected 200, got %d", resp.StatusCode)
	}
	user, found, err := mem.GetUserByEmail("staff@example.com")
	if err != nil || !found {
		t.Fatalf("fetch staff: found=%v err=%v", found, err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("staff role = %q, want admin", user.Role)
	}

	// The same token now clears the admin gate.
	resp = doJSON(t, http.MethodPost, ts.URL+"/parts", staffToken, part)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post-grant POST /parts expected 201, got %d", resp.StatusCode)
	}

	// Granting to an unknown user is a 404.
	resp = doJSON(t, http.MethodPut, ts.URL+"/users/admin/ghost@example.com", bossToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("grant to unknown user expected 404, got %d", resp.StatusCode)
	}
}
