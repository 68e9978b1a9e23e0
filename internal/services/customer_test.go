package services

import (
	"testing"
	"time"

	"github.com/Ramsupport/invoicemaker/internal/models"
)

func TestCustomerDeleteBlockedByInvoices(t *testing.T) {
	db := setupInvoiceTestDB(t)
	customer, product := seedInvoiceFixtures(t, db, 10)
	invoices := NewInvoiceService(db)
	customers := NewCustomerService(db)

	pid := product.ID
	inv, _, err := invoices.Create(CreateInvoiceInput{
		CustomerID:  customer.ID,
		InvoiceDate: time.Now(),
		Items:       []ItemInput{{ProductID: &pid, ProductName: product.Name, Quantity: 1, Price: 50}},
		CreatedBy:   1,
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	if err := customers.Delete(customer.ID); err != ErrCustomerHasInvoices {
		t.Fatalf("expected ErrCustomerHasInvoices, got %v", err)
	}
	var count int64
	db.Model(&models.Customer{}).Where("id = ?", customer.ID).Count(&count)
	if count != 1 {
		t.Fatal("customer row must survive a blocked delete")
	}

	// Once the invoice is gone the customer can go too.
	if err := invoices.Delete(inv.ID); err != nil {
		t.Fatalf("delete invoice: %v", err)
	}
	if err := customers.Delete(customer.ID); err != nil {
		t.Fatalf("delete customer: %v", err)
	}
	if err := customers.Delete(customer.ID); err != ErrCustomerNotFound {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}
