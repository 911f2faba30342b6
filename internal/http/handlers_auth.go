package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"expensia/internal/auth"
	"expensia/internal/storage"
)

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.auth.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrDuplicateEmail):
			respondError(w, http.StatusBadRequest, "email already registered")
		default:
			slog.ErrorContext(r.Context(), "Registration failed", "error", err)
			respondInternalError(w)
		}
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.ErrorContext(r.Context(), "Post-registration login failed", "error", err)
		respondInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"token":   session.Token,
		"user":    userPayload(user.ID, user.FullName, user.Email),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.ErrorContext(r.Context(), "Login failed", "error", err)
		respondInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   session.Token,
		"user":    userPayload(session.UserID, session.FullName, session.Email),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	s.auth.Logout(strings.TrimPrefix(header, "Bearer "))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	writeJSON(w, http.StatusOK, userPayload(session.UserID, session.FullName, session.Email))
}

func userPayload(id, fullName, email string) map[string]string {
	return map[string]string{
		"id":       id,
		"fullName": fullName,
		"email":    email,
	}
}
