package server

import (
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitsync/internal/auth"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/wire"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req wire.RegisterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	s.logger.Info("Register request received", "email", req.Email)

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("a valid email is required")))
		return
	}

	user, err := s.authenticator.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", req.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			writeError(w, connect.NewError(connect.CodeAlreadyExists, err))
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrMissingName):
			writeError(w, connect.NewError(connect.CodeInvalidArgument, err))
		default:
			writeError(w, connect.NewError(connect.CodeInternal, err))
		}
		return
	}

	s.respondWithToken(w, http.StatusCreated, user)
	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req wire.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	s.logger.Info("Login request received", "email", req.Email)

	if req.Email == "" || req.Password == "" {
		writeError(w, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials))
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Warn("Login failed", "email", req.Email)
		writeError(w, connect.NewError(connect.CodeUnauthenticated, err))
		return
	}
	if err != nil {
		writeError(w, connect.NewError(connect.CodeInternal, err))
		return
	}

	s.respondWithToken(w, http.StatusOK, user)
	s.logger.Info("User logged in successfully", "user_id", user.ID)
}

func (s *Server) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := s.jwtManager.Issue(user.Member())
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		writeError(w, connect.NewError(connect.CodeInternal, err))
		return
	}
	writeJSON(w, status, wire.AuthResponse{Token: token, User: wire.FromMember(user.Member())})
}
