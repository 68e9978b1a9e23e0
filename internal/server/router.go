package server

import (
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/Ramsupport/invoicemaker/internal/auth"
	"github.com/Ramsupport/invoicemaker/internal/handlers"
	"github.com/Ramsupport/invoicemaker/internal/httpx"
	"github.com/Ramsupport/invoicemaker/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		// Lightweight DB check. Error details stay out of the body.
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	secured := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(auth.RequireAdmin(h))
	}

	// Auth endpoints
	ah := handlers.NewAuthHandler(db)
	mux.HandleFunc("POST /api/auth/register", ah.Register)
	mux.HandleFunc("POST /api/auth/login", ah.Login)
	mux.Handle("GET /api/auth/me", secured(ah.Me))
	mux.Handle("PUT /api/auth/change-password", secured(ah.ChangePassword))

	// Customer endpoints
	ch := handlers.NewCustomerHandler(db)
	mux.Handle("GET /api/customers", secured(ch.List))
	mux.Handle("POST /api/customers", secured(ch.Create))
	mux.Handle("GET /api/customers/{id}", secured(ch.Get))
	mux.Handle("PUT /api/customers/{id}", secured(ch.Update))
	mux.Handle("DELETE /api/customers/{id}", secured(ch.Delete))

	// Product endpoints
	ph := handlers.NewProductHandler(db)
	mux.Handle("GET /api/products", secured(ph.List))
	mux.Handle("POST /api/products", secured(ph.Create))
	mux.Handle("GET /api/products/{id}", secured(ph.Get))
	mux.Handle("PUT /api/products/{id}", secured(ph.Update))
	mux.Handle("PATCH /api/products/{id}/stock", secured(ph.UpdateStock))
	mux.Handle("DELETE /api/products/{id}", secured(ph.Delete))

	// Invoice endpoints
	invSvc := services.NewInvoiceService(db)
	ih := handlers.NewInvoiceHandler(invSvc)
	mux.Handle("GET /api/invoices", secured(ih.List))
	mux.Handle("POST /api/invoices", secured(ih.Create))
	mux.Handle("GET /api/invoices/{id}", secured(ih.Get))
	mux.Handle("PUT /api/invoices/{id}", secured(ih.Update))
	mux.Handle("POST /api/invoices/{id}/payment", secured(ih.RecordPayment))
	mux.Handle("DELETE /api/invoices/{id}", secured(ih.Delete))

	// Settings endpoints (writes are admin only)
	sh := handlers.NewSettingHandler(services.NewSettingsService(db))
	mux.Handle("GET /api/settings", secured(sh.List))
	mux.Handle("POST /api/settings/bulk", adminOnly(sh.Bulk))
	mux.Handle("GET /api/settings/{key}", secured(sh.Get))
	mux.Handle("PUT /api/settings/{key}", adminOnly(sh.Put))

	return auth.Middleware(withRecover(withLogging(mux)))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
