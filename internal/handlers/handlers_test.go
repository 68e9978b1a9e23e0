package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Ramsupport/invoicemaker/internal/auth"
	"github.com/Ramsupport/invoicemaker/internal/models"
	"github.com/Ramsupport/invoicemaker/internal/services"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Customer{}, &models.Product{}, &models.Invoice{}, &models.InvoiceItem{}, &models.Setting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Create(&models.Setting{Key: models.NextInvoiceNumberKey, Value: "1"}).Error; err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	return db
}

// newTestMux registers every handler route without the auth guards; handler
// tests inject the identity directly and leave guard behavior to the router
// tests.
func newTestMux(db *gorm.DB) *http.ServeMux {
	mux := http.NewServeMux()

	ah := NewAuthHandler(db)
	mux.HandleFunc("POST /api/auth/register", ah.Register)
	mux.HandleFunc("POST /api/auth/login", ah.Login)
	mux.HandleFunc("GET /api/auth/me", ah.Me)
	mux.HandleFunc("PUT /api/auth/change-password", ah.ChangePassword)

	ch := NewCustomerHandler(db)
	mux.HandleFunc("GET /api/customers", ch.List)
	mux.HandleFunc("POST /api/customers", ch.Create)
	mux.HandleFunc("GET /api/customers/{id}", ch.Get)
	mux.HandleFunc("PUT /api/customers/{id}", ch.Update)
	mux.HandleFunc("DELETE /api/customers/{id}", ch.Delete)

	ph := NewProductHandler(db)
	mux.HandleFunc("GET /api/products", ph.List)
	mux.HandleFunc("POST /api/products", ph.Create)
	mux.HandleFunc("GET /api/products/{id}", ph.Get)
	mux.HandleFunc("PUT /api/products/{id}", ph.Update)
	mux.HandleFunc("PATCH /api/products/{id}/stock", ph.UpdateStock)
	mux.HandleFunc("DELETE /api/products/{id}", ph.Delete)

	ih := NewInvoiceHandler(services.NewInvoiceService(db))
	mux.HandleFunc("GET /api/invoices", ih.List)
	mux.HandleFunc("POST /api/invoices", ih.Create)
	mux.HandleFunc("GET /api/invoices/{id}", ih.Get)
	mux.HandleFunc("PUT /api/invoices/{id}", ih.Update)
	mux.HandleFunc("POST /api/invoices/{id}/payment", ih.RecordPayment)
	mux.HandleFunc("DELETE /api/invoices/{id}", ih.Delete)

	sh := NewSettingHandler(services.NewSettingsService(db))
	mux.HandleFunc("GET /api/settings", sh.List)
	mux.HandleFunc("POST /api/settings/bulk", sh.Bulk)
	mux.HandleFunc("GET /api/settings/{key}", sh.Get)
	mux.HandleFunc("PUT /api/settings/{key}", sh.Put)

	return mux
}

var testIdentity = auth.Identity{ID: 1, Username: "tester", Role: "user"}

// doJSON performs a request against the mux with the test identity attached
// and decodes the JSON body into out (when out is non-nil).
func doJSON(t *testing.T, mux *http.ServeMux, method, target string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithIdentity(req.Context(), testIdentity))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response (%d %s): %v\nbody: %s", rec.Code, target, err, rec.Body.String())
		}
	}
	return rec
}

func seedCustomerRow(t *testing.T, db *gorm.DB, name string) models.Customer {
	t.Helper()
	c := models.Customer{Name: name, Phone: "9876543210"}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}

func seedProductRow(t *testing.T, db *gorm.DB, name string, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, DefaultPrice: 100, DefaultTaxRate: 18, StockQuantity: stock}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}
