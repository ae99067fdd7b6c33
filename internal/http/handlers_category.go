package http

import (
	"net/http"

	"langkah/internal/core"
)

type categoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.coord.Categories())
	case http.MethodPost:
		s.createCategory(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cat, err := s.coord.AddCategory(r.Context(), sanitizeInput(req.Name), core.TransactionType(req.Type))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPut:
		var req categoryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := s.coord.RenameCategory(r.Context(), id, sanitizeInput(req.Name)); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.coord.Categories())
	case http.MethodDelete:
		if err := s.coord.DeleteCategory(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}
