package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/Ramsupport/invoicemaker/internal/httpx"
	"github.com/Ramsupport/invoicemaker/internal/models"
	"github.com/Ramsupport/invoicemaker/internal/services"
	"github.com/Ramsupport/invoicemaker/internal/validation"
)

type CustomerHandler struct {
	DB  *gorm.DB
	Svc *services.CustomerService
}

func NewCustomerHandler(db *gorm.DB) *CustomerHandler {
	return &CustomerHandler{DB: db, Svc: services.NewCustomerService(db)}
}

// List: GET /api/customers?search=&limit=&offset=
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100)
	dbq := h.DB.Model(&models.Customer{})
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?", like, like, like)
	}
	customers := []models.Customer{}
	if err := dbq.Order("name").Limit(limit).Offset(offset).Find(&customers).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(customers), "customers": customers})
}

// Get: GET /api/customers/{id}
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var customer models.Customer
	if err := h.DB.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "Customer not found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "customer": customer})
}

type customerReq struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	GSTIN   *string `json:"gstin"`
}

// Create: POST /api/customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req customerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	name := strings.TrimSpace(deref(req.Name))
	validation.Required("name", name, v)
	validation.Email("email", deref(req.Email), v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	customer := models.Customer{Name: name, Email: deref(req.Email), Phone: deref(req.Phone), Address: deref(req.Address), GSTIN: deref(req.GSTIN)}
	if err := h.DB.Create(&customer).Error; err != nil {
		if isUniqueViolation(err) {
			httpx.JSONError(w, http.StatusBadRequest, "Customer with this name already exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Customer created successfully", "customer": customer})
}

// Update: PUT /api/customers/{id}. Omitted fields keep their stored value.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req customerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"name": "required"})
			return
		}
		updates["name"] = name
	}
	if req.Email != nil {
		v := validation.Violations{}
		validation.Email("email", *req.Email, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.GSTIN != nil {
		updates["gstin"] = *req.GSTIN
	}

	var customer models.Customer
	if err := h.DB.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "Customer not found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&customer).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				httpx.JSONError(w, http.StatusBadRequest, "Customer with this name already exists", nil)
				return
			}
			httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Customer updated successfully", "customer": customer})
}

// Delete: DELETE /api/customers/{id}. Rejected while invoices reference it.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(id); err != nil {
		switch {
		case errors.Is(err, services.ErrCustomerHasInvoices):
			httpx.JSONError(w, http.StatusBadRequest, "Cannot delete customer with existing invoices", nil)
		case errors.Is(err, services.ErrCustomerNotFound):
			httpx.JSONError(w, http.StatusNotFound, "Customer not found", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Customer deleted successfully"})
}
