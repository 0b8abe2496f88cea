package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"sreindustries/internal/token"
	"sreindustries/pkg/domain"
)

// /parts: the catalog listing is public, adding a part is admin-only.
func (s *Server) handleParts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		parts, err := s.app.ListParts()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": parts,
			"count": len(parts),
		})
	case http.MethodPost:
		claims, ok := s.requireAdmin(w, r)
		if !ok {
			return
		}
		var req createPartRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		part, err := s.app.CreatePart(domain.Part{
			Name:        req.Name,
			Description: req.Description,
			ImageURL:    req.ImageURL,
			Price:       req.Price,
			MinOrderQty: req.MinOrderQty,
			Available:   req.Available,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "shop.part.create", "success", "email", claims.Email, "part_id", part.ID)
		writeJSON(w, http.StatusCreated, part)
	default:
		methodNotAllowed(w)
	}
}

// /parts/{id}
func (s *Server) handlePartByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/parts/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.requireToken(w, r); !ok {
			return
		}
		part, err := s.app.GetPart(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, part)
	case http.MethodDelete:
		claims, ok := s.requireAdmin(w, r)
		if !ok {
			return
		}
		affected, err := s.app.DeletePart(id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "shop.part.delete", "success", "email", claims.Email, "part_id", id, "affected", affected)
		writeJSON(w, http.StatusOK, map[string]any{"deletedCount": affected})
	default:
		methodNotAllowed(w)
	}
}

// /reviews
func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request, claims token.Claims) {
	switch r.Method {
	case http.MethodGet:
		reviews, err := s.app.ListReviews()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": reviews,
			"count": len(reviews),
		})
	case http.MethodPost:
		var req createReviewRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		review, err := s.app.CreateReview(domain.Review{
			Author:  req.Author,
			Email:   claims.Email,
			Content: req.Content,
			Rating:  req.Rating,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, review)
	default:
		methodNotAllowed(w)
	}
}

type createPartRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    string  `json:"img"`
	Price       float64 `json:"price"`
	MinOrderQty int     `json:"minOrderQuantity"`
	Available   int     `json:"availableQuantity"`
}

type createReviewRequest struct {
	Author  string `json:"name"`
	Content string `json:"description"`
	Rating  int    `json:"rating"`
}
