package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/Ramsupport/invoicemaker/internal/auth"
	"github.com/Ramsupport/invoicemaker/internal/models"
)

// doAnon performs a request without an identity in context; register and
// login are the open endpoints.
func doAnon(t *testing.T, mux *http.ServeMux, method, target string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response (%d): %v\nbody: %s", rec.Code, err, rec.Body.String())
		}
	}
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupHandlerDB(t)
	mux := newTestMux(db)

	var reg struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	rec := doAnon(t, mux, "POST", "/api/auth/register", map[string]any{
		"username": "ramesh",
		"email":    "ramesh@example.com",
		"password": "secret123",
	}, &reg)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	if reg.Token == "" || reg.User.Role != models.RoleUser {
		t.Fatalf("register response: %+v", reg)
	}
	if id, ok := auth.ParseToken(reg.Token); !ok || id.Username != "ramesh" {
		t.Fatalf("register token invalid: %v %v", id, ok)
	}

	// Stored hash must not be the plaintext.
	var user models.User
	if err := db.First(&user, reg.User.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.PasswordHash == "secret123" {
		t.Fatal("password stored in plaintext")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")) != nil {
		t.Fatal("stored hash does not verify")
	}

	// Duplicate username rejected.
	rec = doAnon(t, mux, "POST", "/api/auth/register", map[string]any{
		"username": "ramesh", "email": "other@example.com", "password": "secret123",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", rec.Code)
	}

	var login struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	rec = doAnon(t, mux, "POST", "/api/auth/login", map[string]any{
		"username": "ramesh", "password": "secret123",
	}, &login)
	if rec.Code != http.StatusOK || login.Token == "" {
		t.Fatalf("login: %d %+v", rec.Code, login)
	}
	if err := db.First(&user, reg.User.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.LastLogin == nil {
		t.Fatal("last_login not recorded")
	}

	rec = doAnon(t, mux, "POST", "/api/auth/login", map[string]any{
		"username": "ramesh", "password": "wrongpass",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", rec.Code)
	}
	rec = doAnon(t, mux, "POST", "/api/auth/login", map[string]any{
		"username": "ghost", "password": "whatever",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupHandlerDB(t)
	mux := newTestMux(db)

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	rec := doAnon(t, mux, "POST", "/api/auth/register", map[string]any{
		"username": "ab", "email": "nope", "password": "12345",
	}, &resp)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	for _, field := range []string{"username", "email", "password"} {
		if _, ok := resp.Errors[field]; !ok {
			t.Fatalf("missing violation for %s: %#v", field, resp.Errors)
		}
	}
}

func TestChangePassword(t *testing.T) {
	db := setupHandlerDB(t)
	mux := newTestMux(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("oldpass1"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{Username: "tester", Email: "t@example.com", PasswordHash: string(hash), Role: models.RoleUser}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	// testIdentity carries ID 1 which matches the seeded user.
	rec := doJSON(t, mux, "PUT", "/api/auth/change-password", map[string]any{
		"currentPassword": "wrong", "newPassword": "newpass1",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current password status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, mux, "PUT", "/api/auth/change-password", map[string]any{
		"currentPassword": "oldpass1", "newPassword": "newpass1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("change status = %d, body %s", rec.Code, rec.Body.String())
	}
	var reloaded models.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(reloaded.PasswordHash), []byte("newpass1")) != nil {
		t.Fatal("new password does not verify")
	}
}
