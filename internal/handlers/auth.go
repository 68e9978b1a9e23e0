package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Ramsupport/invoicemaker/internal/auth"
	"github.com/Ramsupport/invoicemaker/internal/httpx"
	"github.com/Ramsupport/invoicemaker/internal/models"
	"github.com/Ramsupport/invoicemaker/internal/validation"
)

type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

type userPayload struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func userToPayload(u *models.User) userPayload {
	return userPayload{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Register: POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.MinLen("username", req.Username, 3, v)
	validation.Required("email", req.Email, v)
	validation.Email("email", req.Email, v)
	validation.MinLen("password", req.Password, 6, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var existing int64
	if err := h.DB.Model(&models.User{}).Where("username = ? OR email = ?", req.Username, req.Email).Count(&existing).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error during registration", nil)
		return
	}
	if existing > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "Username or email already exists", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error during registration", nil)
		return
	}
	user := models.User{Username: req.Username, Email: req.Email, PasswordHash: string(hash), Role: models.RoleUser}
	if err := h.DB.Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error during registration", nil)
		return
	}

	token, err := auth.IssueToken(auth.Identity{ID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error during registration", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully",
		"token":   token,
		"user":    userToPayload(&user),
	})
}

// Login: POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("username", req.Username, v)
	validation.Required("password", req.Password, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusUnauthorized, "Invalid username or password", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error during login", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	now := time.Now()
	_ = h.DB.Model(&user).Update("last_login", now).Error

	token, err := auth.IssueToken(auth.Identity{ID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error during login", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    userToPayload(&user),
	})
}

// Me: GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var user models.User
	if err := h.DB.First(&user, id.ID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// ChangePassword: PUT /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("currentPassword", req.CurrentPassword, v)
	validation.MinLen("newPassword", req.NewPassword, 6, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var user models.User
	if err := h.DB.First(&user, id.ID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "Current password is incorrect", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	if err := h.DB.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password changed successfully"})
}
