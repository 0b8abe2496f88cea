package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sreindustries/internal/app"
	"sreindustries/internal/ratelimit"
	"sreindustries/internal/token"
	"sreindustries/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                     *app.App
	Tokens                  *token.Codec
	RedisAddr               string
	RedisPassword           string
	LoginRateLimitPerMinute int
}

// Server exposes HTTP endpoints for the parts shop backend.
type Server struct {
	app          *app.App
	tokens       *token.Codec
	mux          *http.ServeMux
	loginLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	var loginLimiter *ratelimit.FixedWindowLimiter
	if cfg.LoginRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword,
			"sre:ratelimit:login", cfg.LoginRateLimitPerMinute, time.Minute,
		)
		if err != nil {
			return nil, fmt.Errorf("init login limiter: %w", err)
		}
		loginLimiter = limiter
	}
	s := &Server{
		app:          cfg.App,
		tokens:       cfg.Tokens,
		mux:          http.NewServeMux(),
		loginLimiter: loginLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/login", s.handleLogin)

	// catalog & reviews
	s.mux.HandleFunc("/parts", s.handleParts)
	s.mux.HandleFunc("/parts/", s.handlePartByID)
	s.mux.Handle("/reviews", s.authenticated(s.handleReviews))

	// orders & payments
	s.mux.HandleFunc("/orders", s.handleOrders)
	s.mux.Handle("/orders/", s.authenticated(s.handleOrderByPath))
	s.mux.Handle("/order/", s.authenticated(s.handleOrderLookup))
	s.mux.Handle("/create-payment-intent", s.authenticated(s.handlePaymentIntent))

	// users & roles
	s.mux.Handle("/users", s.authenticated(s.handleUsers))
	s.mux.HandleFunc("/users/", s.handleUserByEmail)
	s.mux.HandleFunc("/admin/", s.handleAdminCheck)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type claimsHandler func(http.ResponseWriter, *http.Request, token.Claims)

// authenticated distinguishes a missing credential (401) from a presented
// credential that fails verification (403).
func (s *Server) authenticated(next claimsHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			s.audit(r, "shop.token.verify", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthorized access")
			return
		}
		claims, err := s.tokens.Verify(raw)
		if err != nil {
			s.audit(r, "shop.token.verify", "fail", "reason", "invalid_signature_or_claims")
			writeError(w, http.StatusForbidden, "forbidden access")
			return
		}
		s.audit(r, "shop.token.verify", "success", "email", claims.Email)
		next(w, r, claims)
	})
}

// requireAdmin layers a stored-role check on top of token verification. The
// caller's role comes from the user record, never from the token, so a role
// change takes effect without reissuing tokens.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (token.Claims, bool) {
	raw, ok := bearerToken(r)
	if !ok {
		s.audit(r, "shop.admin.authorize", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "unauthorized access")
		return token.Claims{}, false
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		s.audit(r, "shop.admin.authorize", "fail", "reason", "invalid_signature_or_claims")
		writeError(w, http.StatusForbidden, "forbidden access")
		return token.Claims{}, false
	}
	isAdmin, err := s.app.IsAdmin(claims.Email)
	if err != nil {
		s.audit(r, "shop.admin.authorize", "fail", "reason", "role_lookup_failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return token.Claims{}, false
	}
	if !isAdmin {
		s.audit(r, "shop.admin.authorize", "fail", "email", claims.Email, "reason", "forbidden")
		writeError(w, http.StatusForbidden, "forbidden access")
		return token.Claims{}, false
	}
	s.audit(r, "shop.admin.authorize", "success", "email", claims.Email)
	return claims, true
}

func (s *Server) requireToken(w http.ResponseWriter, r *http.Request) (token.Claims, bool) {
	raw, ok := bearerToken(r)
	if !ok {
		s.audit(r, "shop.token.verify", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "unauthorized access")
		return token.Claims{}, false
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		s.audit(r, "shop.token.verify", "fail", "reason", "invalid_signature_or_claims")
		writeError(w, http.StatusForbidden, "forbidden access")
		return token.Claims{}, false
	}
	return claims, true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		slog.Warn("missing bearer prefix", "path", r.URL.Path)
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if raw == "" {
		slog.Warn("empty bearer token", "path", r.URL.Path)
		return "", false
	}
	return raw, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps business errors to HTTP statuses. Duplicate orders are
// handled by the order handler itself, not here.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrOrderNotFound),
		errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrPartNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrEmailRequired),
		errors.Is(err, app.ErrProductIDRequired),
		errors.Is(err, app.ErrPartNameRequired),
		errors.Is(err, app.ErrReviewContentRequired),
		errors.Is(err, app.ErrTransactionIDRequired),
		errors.Is(err, app.ErrEmptyShippingUpdate),
		errors.Is(err, app.ErrPriceRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
