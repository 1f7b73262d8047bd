package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

type authService interface {
	Authenticate(ctx context.Context, username, password string, isSignup bool) (*entity.User, error)
	IssueToken(username string) (string, error)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type AuthHandler struct {
	logger *slog.Logger
	auth   authService
}

func NewAuthHandler(logger *slog.Logger, auth authService) *AuthHandler {
	return &AuthHandler{
		logger: logger.With("component", "rest-auth"),
		auth:   auth,
	}
}

func (that *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	that.authenticate(w, r, true)
}

func (that *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	that.authenticate(w, r, false)
}

func (that *AuthHandler) authenticate(w http.ResponseWriter, r *http.Request, isSignup bool) {
	log := that.logger.With("method", "authenticate", "signup", isSignup)

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := that.auth.Authenticate(r.Context(), req.Username, req.Password, isSignup)
	if err != nil {
		writeJSON(w, statusForAuthError(err), errorResponse{Error: err.Error()})
		return
	}

	token, err := that.auth.IssueToken(user.Username)
	if err != nil {
		log.Error("failed to issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	log.Info("user authenticated", "username", user.Username)

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func statusForAuthError(err error) int {
	switch {
	case errors.Is(err, apperror.ErrInvalidCredentialsFormat):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
