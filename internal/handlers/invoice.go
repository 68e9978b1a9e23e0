package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Ramsupport/invoicemaker/internal/auth"
	"github.com/Ramsupport/invoicemaker/internal/httpx"
	"github.com/Ramsupport/invoicemaker/internal/services"
	"github.com/Ramsupport/invoicemaker/internal/validation"
)

type InvoiceHandler struct {
	Svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc}
}

// List: GET /api/invoices?status=&customer_name=&customer_phone=&date_from=&date_to=&limit=&offset=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100)
	f := services.ListFilters{
		Status:        r.URL.Query().Get("status"),
		CustomerName:  strings.TrimSpace(r.URL.Query().Get("customer_name")),
		CustomerPhone: strings.TrimSpace(r.URL.Query().Get("customer_phone")),
		Limit:         limit,
		Offset:        offset,
	}
	if v := r.URL.Query().Get("date_from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"date_from": "invalid_date"})
			return
		}
		f.DateFrom = &t
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"date_to": "invalid_date"})
			return
		}
		f.DateTo = &t
	}
	rows, err := h.Svc.List(f)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(rows), "invoices": rows})
}

// Get: GET /api/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	summary, items, err := h.Svc.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrInvoiceNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "Invoice not found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"invoice": summary,
		"items":   items,
	})
}

type invoiceItemReq struct {
	ProductID    *uint   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	SerialNumber string  `json:"serial_number"`
	Warranty     string  `json:"warranty"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	CGST         float64 `json:"cgst"`
	SGST         float64 `json:"sgst"`
	IGST         float64 `json:"igst"`
}

func validateItems(items []invoiceItemReq, v validation.Violations) []services.ItemInput {
	if len(items) == 0 {
		v["items"] = "required"
		return nil
	}
	inputs := make([]services.ItemInput, 0, len(items))
	for _, it := range items {
		validation.Required("items.product_name", it.ProductName, v)
		validation.PositiveInt("items.quantity", it.Quantity, v)
		validation.NonNegativeFloat("items.price", it.Price, v)
		validation.NonNegativeFloat("items.cgst", it.CGST, v)
		validation.NonNegativeFloat("items.sgst", it.SGST, v)
		validation.NonNegativeFloat("items.igst", it.IGST, v)
		inputs = append(inputs, services.ItemInput{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			SerialNumber: it.SerialNumber,
			Warranty:     it.Warranty,
			Quantity:     it.Quantity,
			Price:        it.Price,
			CGST:         it.CGST,
			SGST:         it.SGST,
			IGST:         it.IGST,
		})
	}
	return inputs
}

// Create: POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.IdentityFromContext(r.Context())
	var req struct {
		CustomerID   uint             `json:"customer_id"`
		InvoiceDate  string           `json:"invoice_date"`
		PaymentTerms string           `json:"payment_terms"`
		Items        []invoiceItemReq `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	if req.CustomerID == 0 {
		v["customer_id"] = "required"
	}
	var invoiceDate time.Time
	if req.InvoiceDate == "" {
		v["invoice_date"] = "required"
	} else if t, err := parseDate(req.InvoiceDate); err != nil {
		v["invoice_date"] = "invalid_date"
	} else {
		invoiceDate = t
	}
	items := validateItems(req.Items, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	inv, warnings, err := h.Svc.Create(services.CreateInvoiceInput{
		CustomerID:   req.CustomerID,
		InvoiceDate:  invoiceDate,
		PaymentTerms: req.PaymentTerms,
		Items:        items,
		CreatedBy:    actor.ID,
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "Server error creating invoice", nil)
		return
	}
	// Response mirrors the row only; items are fetched via GET.
	inv.Items = nil
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"message":        "Invoice created successfully",
		"invoice":        inv,
		"stock_warnings": warnings,
	})
}

// Update: PUT /api/invoices/{id}. Omitting "items" leaves the item set and
// totals untouched; supplying items replaces them wholesale.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		CustomerID   *uint            `json:"customer_id"`
		InvoiceDate  *string          `json:"invoice_date"`
		PaymentTerms *string          `json:"payment_terms"`
		Items        []invoiceItemReq `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	in := services.UpdateInvoiceInput{CustomerID: req.CustomerID, PaymentTerms: req.PaymentTerms}
	if req.InvoiceDate != nil {
		t, err := parseDate(*req.InvoiceDate)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"invoice_date": "invalid_date"})
			return
		}
		in.InvoiceDate = &t
	}
	if req.Items != nil {
		in.Items = validateItems(req.Items, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
	}

	warnings, err := h.Svc.Update(id, in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvoiceNotFound):
			httpx.JSONError(w, http.StatusNotFound, "Invoice not found", nil)
		case errors.Is(err, services.ErrInvoicePaid):
			httpx.JSONError(w, http.StatusBadRequest, "Cannot edit paid invoice", nil)
		case errors.Is(err, services.ErrNoItems):
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"items": "required"})
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "Server error updating invoice", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        "Invoice updated successfully",
		"stock_warnings": warnings,
	})
}

// RecordPayment: POST /api/invoices/{id}/payment
func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		PaymentDate   string   `json:"payment_date"`
		PaymentAmount *float64 `json:"payment_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	var paymentDate time.Time
	if req.PaymentDate == "" {
		v["payment_date"] = "required"
	} else if t, err := parseDate(req.PaymentDate); err != nil {
		v["payment_date"] = "invalid_date"
	} else {
		paymentDate = t
	}
	if req.PaymentAmount == nil {
		v["payment_amount"] = "required"
	} else {
		validation.NonNegativeFloat("payment_amount", *req.PaymentAmount, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	inv, err := h.Svc.RecordPayment(id, paymentDate, *req.PaymentAmount)
	if err != nil {
		if errors.Is(err, services.ErrNotFoundOrPaid) {
			httpx.JSONError(w, http.StatusBadRequest, "Invoice not found or already paid", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment recorded successfully",
		"invoice": inv,
	})
}

// Delete: DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(id); err != nil {
		if errors.Is(err, services.ErrInvoiceNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "Invoice not found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "Server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Invoice deleted successfully"})
}
