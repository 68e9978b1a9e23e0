package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/Ramsupport/invoicemaker/internal/models"
)

func TestCustomerCRUD(t *testing.T) {
	db := setupHandlerDB(t)
	mux := newTestMux(db)

	var created struct {
		Success  bool `json:"success"`
		Customer struct {
			ID   uint   `json:"id"`
			Name string `json:"name"`
		} `json:"customer"`
	}
	rec := doJSON(t, mux, "POST", "/api/customers", map[string]any{
		"name":  "  ACME Traders  ",
		"email": "sales@acme.example",
		"phone": "9876543210",
	}, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	if created.Customer.Name != "ACME Traders" {
		t.Fatalf("name not trimmed: %q", created.Customer.Name)
	}

	// Duplicate name rejected.
	rec = doJSON(t, mux, "POST", "/api/customers", map[string]any{"name": "ACME Traders"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want 400", rec.Code)
	}

	// Partial update keeps omitted fields.
	rec = doJSON(t, mux, "PUT", "/api/customers/1", map[string]any{"phone": "1112223334"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	var row models.Customer
	if err := db.First(&row, created.Customer.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if row.Phone != "1112223334" || row.Email != "sales@acme.example" {
		t.Fatalf("partial update wrong: %#v", row)
	}

	rec = doJSON(t, mux, "PUT", "/api/customers/1", map[string]any{"name": "  "}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank name status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, mux, "PUT", "/api/customers/1", map[string]any{"email": "nope"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad email status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, mux, "DELETE", "/api/customers/1", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, mux, "GET", "/api/customers/1", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}
}

func TestCustomerDeleteBlockedWhenInvoiced(t *testing.T) {
	db := setupHandlerDB(t)
	mux := newTestMux(db)
	customer := seedCustomerRow(t, db, "Busy Customer")
	if err := db.Create(&models.Invoice{CustomerID: customer.ID, InvoiceDate: time.Now(), PaymentTerms: "On Receipt"}).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	rec := doJSON(t, mux, "DELETE", "/api/customers/1", nil, &resp)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp.Message != "Cannot delete customer with existing invoices" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestCustomerListSearch(t *testing.T) {
	db := setupHandlerDB(t)
	mux := newTestMux(db)
	seedCustomerRow(t, db, "Alpha Industries")
	b := models.Customer{Name: "Beta Corp", Email: "hello@beta.example", Phone: "5550001111"}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	var list struct {
		Success   bool `json:"success"`
		Count     int  `json:"count"`
		Customers []struct {
			Name string `json:"name"`
		} `json:"customers"`
	}
	rec := doJSON(t, mux, "GET", "/api/customers?search=beta", nil, &list)
	if rec.Code != http.StatusOK || list.Count != 1 || list.Customers[0].Name != "Beta Corp" {
		t.Fatalf("search by name: %d %+v", rec.Code, list)
	}
	// Search also matches email and phone.
	rec = doJSON(t, mux, "GET", "/api/customers?search=5550001111", nil, &list)
	if rec.Code != http.StatusOK || list.Count != 1 {
		t.Fatalf("search by phone: %d %+v", rec.Code, list)
	}
	rec = doJSON(t, mux, "GET", "/api/customers", nil, &list)
	if list.Count != 2 {
		t.Fatalf("unfiltered count = %d", list.Count)
	}
}
