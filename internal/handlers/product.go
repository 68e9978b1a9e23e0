package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/Ramsupport/invoicemaker/internal/httpx"
	"github.com/Ramsupport/invoicemaker/internal/models"
	"github.com/Ramsupport/invoicemaker/internal/validation"
)

const defaultTaxRate = 18.0

type ProductHandler struct {
	DB *gorm.DB
}

func NewProductHandler(db *gorm.DB) *ProductHandler { return &ProductHandler{DB: db} }

// List: GET /api/products?search=&stock_status=&limit=&offset=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100)
	dbq := h.DB.Model(&models.Product{})
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		dbq = dbq.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	switch r.URL.Query().Get("stock_status") {
	case "in_stock":
		dbq = dbq.Where("stock_quantity > 0")
	case "low_stock":
		dbq = dbq.Where("stock_quantity > 0 AND stock_quantity < 5")
	case "out_of_stock":
		dbq = dbq.Where("stock_quantity = 0")
	}
	products := []models.Product{}
	if err := dbq.Order("name").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(products), "products": products})
}

// Get: GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "Product not found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "product": product})
}

type productReq struct {
	Name           *string  `json:"name"`
	DefaultPrice   *float64 `json:"default_price"`
	DefaultTaxRate *float64 `json:"default_tax_rate"`
	StockQuantity  *int     `json:"stock_quantity"`
}

// Create: POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	name := strings.TrimSpace(deref(req.Name))
	validation.Required("name", name, v)
	if req.DefaultPrice == nil {
		v["default_price"] = "required"
	} else {
		validation.NonNegativeFloat("default_price", *req.DefaultPrice, v)
	}
	if req.DefaultTaxRate != nil {
		validation.RangeFloat("default_tax_rate", *req.DefaultTaxRate, 0, 100, v)
	}
	if req.StockQuantity != nil {
		validation.NonNegativeInt("stock_quantity", *req.StockQuantity, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	product := models.Product{Name: name, DefaultPrice: *req.DefaultPrice, DefaultTaxRate: defaultTaxRate}
	if req.DefaultTaxRate != nil {
		product.DefaultTaxRate = *req.DefaultTaxRate
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if err := h.DB.Create(&product).Error; err != nil {
		if isUniqueViolation(err) {
			httpx.JSONError(w, http.StatusBadRequest, "Product with this name already exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Product created successfully", "product": product})
}

// Update: PUT /api/products/{id}. Omitted fields keep their stored value.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		validation.Required("name", name, v)
		updates["name"] = name
	}
	if req.DefaultPrice != nil {
		validation.NonNegativeFloat("default_price", *req.DefaultPrice, v)
		updates["default_price"] = *req.DefaultPrice
	}
	if req.DefaultTaxRate != nil {
		validation.RangeFloat("default_tax_rate", *req.DefaultTaxRate, 0, 100, v)
		updates["default_tax_rate"] = *req.DefaultTaxRate
	}
	if req.StockQuantity != nil {
		validation.NonNegativeInt("stock_quantity", *req.StockQuantity, v)
		updates["stock_quantity"] = *req.StockQuantity
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "Product not found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&product).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				httpx.JSONError(w, http.StatusBadRequest, "Product with this name already exists", nil)
				return
			}
			httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Product updated successfully", "product": product})
}

// UpdateStock: PATCH /api/products/{id}/stock. Manual adjustment from the
// dashboard; "remove" floors at zero rather than erroring.
func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity  *int   `json:"quantity"`
		Operation string `json:"operation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Quantity == nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"quantity": "required"})
		return
	}
	// A negative quantity with "add" would be a disguised unguarded decrement.
	v := validation.Violations{}
	validation.NonNegativeInt("quantity", *req.Quantity, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var expr any
	switch req.Operation {
	case "add":
		expr = gorm.Expr("stock_quantity + ?", *req.Quantity)
	case "remove":
		expr = gorm.Expr("MAX(stock_quantity - ?, 0)", *req.Quantity)
		if h.DB.Dialector.Name() == "postgres" {
			expr = gorm.Expr("GREATEST(stock_quantity - ?, 0)", *req.Quantity)
		}
	case "set":
		expr = *req.Quantity
	default:
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"operation": "must_be_add_remove_or_set"})
		return
	}

	res := h.DB.Model(&models.Product{}).Where("id = ?", id).Update("stock_quantity", expr)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Stock updated successfully", "product": product})
}

// Delete: DELETE /api/products/{id}. Historical invoice items keep their
// denormalized product name; the FK nulls out.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res := h.DB.Delete(&models.Product{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Product deleted successfully"})
}
