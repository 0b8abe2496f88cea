package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"sreindustries/internal/token"
	"sreindustries/pkg/domain"
)

// /login mints a token for the given email, creating the profile when it is
// new. Token minting is the rate-limited surface.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "shop.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "shop.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, accessToken, err := s.app.Login(req.Email, domain.User{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Company: req.Company,
	})
	if err != nil {
		s.audit(r, "shop.login", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "shop.login", "success", "email", user.Email)
	writeJSON(w, http.StatusOK, loginResponse{
		Token: accessToken,
		User:  user,
	})
}

// /users
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request, _ token.Claims) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	users, err := s.app.ListUsers()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": users,
		"count": len(users),
	})
}

// /users/{email} and /users/admin/{email}
func (s *Server) handleUserByEmail(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/users/")
	if rest, found := strings.CutPrefix(path, "admin/"); found {
		s.handleGrantAdmin(w, r, rest)
		return
	}
	email := path
	if email == "" || strings.Contains(email, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		// Upsert doubles as first-contact login, so it shares the
		// login quota and needs no prior token.
		if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
			s.audit(r, "shop.user.upsert", "rate_limited")
			return
		}
		var req loginRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, accessToken, err := s.app.Login(email, domain.User{
			Name:    req.Name,
			Phone:   req.Phone,
			Address: req.Address,
			Company: req.Company,
		})
		if err != nil {
			s.audit(r, "shop.user.upsert", "fail", "reason", err.Error())
			writeAppError(w, err)
			return
		}
		s.audit(r, "shop.user.upsert", "success", "email", user.Email)
		writeJSON(w, http.StatusOK, loginResponse{
			Token: accessToken,
			User:  user,
		})
	case http.MethodGet:
		claims, ok := s.requireToken(w, r)
		if !ok {
			return
		}
		if !s.ownerOrAdmin(w, r, claims, email) {
			return
		}
		user, err := s.app.GetUser(email)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGrantAdmin(w http.ResponseWriter, r *http.Request, email string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	if email == "" || strings.Contains(email, "/") {
		http.NotFound(w, r)
		return
	}
	claims, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	if err := s.app.GrantAdmin(email); err != nil {
		s.audit(r, "shop.role.grant", "fail", "email", claims.Email, "target", email, "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "shop.role.grant", "success", "email", claims.Email, "target", email)
	writeJSON(w, http.StatusOK, map[string]string{"role": string(domain.RoleAdmin)})
}

// /admin/{email} answers the role probe the storefront uses to toggle admin
// UI. It leaks only a boolean.
func (s *Server) handleAdminCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	email := strings.TrimPrefix(r.URL.Path, "/admin/")
	if email == "" || strings.Contains(email, "/") {
		http.NotFound(w, r)
		return
	}
	isAdmin, err := s.app.IsAdmin(email)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"admin": isAdmin})
}

type loginRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Company string `json:"company"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}
