package http

import (
	"errors"
	"net/http"

	"langkah/internal/auth"
	"langkah/internal/core"
)

type settingsRequest struct {
	AppName   *string `json:"appName,omitempty"`
	Theme     *string `json:"theme,omitempty"`
	Broadcast *string `json:"broadcast,omitempty"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.coord.Settings())
	case http.MethodPut:
		s.updateSettings(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

// updateSettings applies only the fields present in the request, so a
// theme toggle does not have to carry the app name along.
func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	if req.AppName != nil {
		if err := s.coord.SetAppName(ctx, sanitizeInput(*req.AppName)); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Broadcast != nil {
		if err := s.coord.SetBroadcast(ctx, sanitizeInput(*req.Broadcast)); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Theme != nil {
		if err := s.coord.SetTheme(ctx, core.Theme(*req.Theme)); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, s.coord.Settings())
}

type statusResponse struct {
	Status string `json:"status"`
	Role   string `json:"role"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status: string(s.coord.Status()),
		Role:   string(s.coord.Role()),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Role string `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	role, err := s.coord.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Role: string(role)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	s.coord.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
