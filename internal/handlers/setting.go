package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Ramsupport/invoicemaker/internal/httpx"
	"github.com/Ramsupport/invoicemaker/internal/services"
	"github.com/Ramsupport/invoicemaker/internal/validation"
)

type SettingHandler struct {
	Svc *services.SettingsService
}

func NewSettingHandler(svc *services.SettingsService) *SettingHandler {
	return &SettingHandler{Svc: svc}
}

// List: GET /api/settings
func (h *SettingHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Svc.GetAll()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "settings": settings})
}

// Get: GET /api/settings/{key}
func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := h.Svc.Get(key)
	if err != nil {
		if errors.Is(err, services.ErrSettingNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "Setting not found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "key": key, "value": value})
}

// Put: PUT /api/settings/{key}. Admin only, enforced by the router.
func (h *SettingHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if strings.TrimSpace(req.Value) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"value": "required"})
		return
	}
	setting, err := h.Svc.Set(key, req.Value)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Setting updated successfully", "setting": setting})
}

// Bulk: POST /api/settings/bulk. Admin only; all keys upsert in one
// transaction.
func (h *SettingHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Settings map[string]string `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if len(req.Settings) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"settings": "required"})
		return
	}
	if err := h.Svc.BulkSet(req.Settings); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Settings updated successfully"})
}
