package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/errandsexpress/backend/internal/models"
)

// Request/response structs use snake_case JSON throughout the API.

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func errJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" || req.DisplayName == "" || req.Role == "" {
		errJSON(w, http.StatusBadRequest, "missing required fields")
		return
	}
	u, err := h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName, models.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			errJSON(w, http.StatusConflict, "email already registered")
		case errors.Is(err, ErrInvalidRole):
			errJSON(w, http.StatusBadRequest, "invalid role")
		default:
			h.log.Error("register failed", "error", err)
			errJSON(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(userToResponse(u))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		errJSON(w, http.StatusBadRequest, "missing email or password")
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			errJSON(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("login failed", "error", err)
		errJSON(w, http.StatusInternalServerError, "login failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LoginResponse{Token: token})
}

func userToResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
	}
}
