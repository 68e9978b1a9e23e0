package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Ramsupport/invoicemaker/internal/models"
)

// Domain errors surfaced by the invoice workflow. Handlers map these to HTTP
// statuses; anything else is treated as a transactional failure and rolled
// back.
var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrInvoicePaid     = errors.New("cannot_edit_paid_invoice")
	// ErrNotFoundOrPaid is deliberately ambiguous: the guarded payment update
	// affected no row, either because the id is unknown or because payment was
	// already recorded.
	ErrNotFoundOrPaid = errors.New("invoice_not_found_or_already_paid")
	ErrNoItems        = errors.New("invoice_requires_items")
)

// ItemInput is one requested invoice line. Amount fields are inputs to the
// total calculator; the persisted line total is always recomputed, never
// trusted.
type ItemInput struct {
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

type CreateInvoiceInput struct {
	CustomerID   uint
	InvoiceDate  time.Time
	PaymentTerms string
	Items        []ItemInput
	CreatedBy    uint
}

// UpdateInvoiceInput uses "keep existing value if nil" semantics for scalar
// fields. A nil Items slice means the item set (and therefore the totals) is
// left untouched; supplying items replaces the set wholesale.
type UpdateInvoiceInput struct {
	CustomerID   *uint
	InvoiceDate  *time.Time
	PaymentTerms *string
	Items        []ItemInput
}

// StockWarning reports a reservation shortfall: a stock decrement whose guard
// failed and was skipped. The invoice still persists; the caller decides what
// to do about the unreserved quantity.
type StockWarning struct {
	ProductID uint   `json:"product_id"`
	ItemName  string `json:"product_name"`
	Requested int    `json:"requested"`
}

// ListFilters is the enumerated set of recognized invoice list predicates.
type ListFilters struct {
	Status        string // "paid", "unpaid" or empty
	CustomerName  string // substring match
	CustomerPhone string // substring match
	DateFrom      *time.Time
	DateTo        *time.Time
	Limit         int
	Offset        int
}

// InvoiceSummary is one row of the invoice list, joined with customer fields.
type InvoiceSummary struct {
	ID              uint       `json:"id"`
	CustomerID      uint       `json:"customer_id"`
	InvoiceDate     time.Time  `json:"invoice_date"`
	PaymentTerms    string     `json:"payment_terms"`
	Subtotal        float64    `json:"subtotal"`
	TaxAmount       float64    `json:"tax_amount"`
	TotalAmount     float64    `json:"total_amount"`
	PaymentReceived bool       `json:"payment_received"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	PaymentAmount   float64    `json:"payment_amount"`
	CreatedBy       uint       `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	CustomerName    string     `json:"customer_name"`
	CustomerEmail   string     `json:"email"`
	CustomerPhone   string     `json:"phone"`
	CustomerAddress string     `json:"address"`
	CustomerGSTIN   string     `json:"gstin"`
}

// InvoiceService coordinates the invoice lifecycle. Every mutating operation
// runs as a single gorm transaction: commit on normal return, rollback and
// propagate on any failure.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// ComputeTotals calculates subtotal, tax amount and grand total for an item
// set. Pure and deterministic; amounts are exact to 2 decimal places.
func ComputeTotals(items []ItemInput) (subtotal, taxAmount, totalAmount float64) {
	sub := decimal.Zero
	tax := decimal.Zero
	for _, it := range items {
		sub = sub.Add(decimal.NewFromInt(int64(it.Quantity)).Mul(decimal.NewFromFloat(it.Price)))
		tax = tax.Add(decimal.NewFromFloat(it.CGST)).
			Add(decimal.NewFromFloat(it.SGST)).
			Add(decimal.NewFromFloat(it.IGST))
	}
	sub = sub.Round(2)
	tax = tax.Round(2)
	return sub.InexactFloat64(), tax.InexactFloat64(), sub.Add(tax).InexactFloat64()
}

// lineTotal computes quantity×price + cgst + sgst + igst for one line.
func lineTotal(it ItemInput) float64 {
	return decimal.NewFromInt(int64(it.Quantity)).Mul(decimal.NewFromFloat(it.Price)).
		Add(decimal.NewFromFloat(it.CGST)).
		Add(decimal.NewFromFloat(it.SGST)).
		Add(decimal.NewFromFloat(it.IGST)).
		Round(2).InexactFloat64()
}

// applyDecrement decreases stock for a product-bound item, guarded by
// stock_quantity >= quantity in the same statement. A failed guard is a
// skip, not an error: the caller records a StockWarning instead.
func applyDecrement(tx *gorm.DB, productID uint, quantity int) (skipped bool, err error) {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 0, nil
}

// applyIncrement restores stock unconditionally.
func applyIncrement(tx *gorm.DB, productID uint, quantity int) error {
	return tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity)).Error
}

// buildItems materializes inputs into rows with recomputed line totals.
func buildItems(invoiceID uint, inputs []ItemInput) []models.InvoiceItem {
	items := make([]models.InvoiceItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.InvoiceItem{
			InvoiceID:    invoiceID,
			ProductID:    in.ProductID,
			ProductName:  in.ProductName,
			SerialNumber: in.SerialNumber,
			Warranty:     in.Warranty,
			Quantity:     in.Quantity,
			Price:        in.Price,
			CGST:         in.CGST,
			SGST:         in.SGST,
			IGST:         in.IGST,
			Total:        lineTotal(in),
		})
	}
	return items
}

// decrementAll runs the guarded decrement for every product-bound item and
// collects shortfall warnings.
func decrementAll(tx *gorm.DB, items []models.InvoiceItem) ([]StockWarning, error) {
	var warnings []StockWarning
	for _, it := range items {
		if it.ProductID == nil {
			continue
		}
		skipped, err := applyDecrement(tx, *it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if skipped {
			warnings = append(warnings, StockWarning{ProductID: *it.ProductID, ItemName: it.ProductName, Requested: it.Quantity})
		}
	}
	return warnings, nil
}

// incrementAll reverses the stock effect of every product-bound item.
func incrementAll(tx *gorm.DB, items []models.InvoiceItem) error {
	for _, it := range items {
		if it.ProductID == nil {
			continue
		}
		if err := applyIncrement(tx, *it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Create persists a new invoice with its items, adjusts stock and advances the
// invoice-number counter, all in one transaction. A failure at any step rolls
// everything back, counter included.
func (s *InvoiceService) Create(in CreateInvoiceInput) (*models.Invoice, []StockWarning, error) {
	if len(in.Items) == 0 {
		return nil, nil, ErrNoItems
	}
	terms := in.PaymentTerms
	if terms == "" {
		terms = "On Receipt"
	}
	subtotal, taxAmount, totalAmount := ComputeTotals(in.Items)
	inv := models.Invoice{
		CustomerID:   in.CustomerID,
		InvoiceDate:  in.InvoiceDate,
		PaymentTerms: terms,
		Subtotal:     subtotal,
		TaxAmount:    taxAmount,
		TotalAmount:  totalAmount,
		CreatedBy:    in.CreatedBy,
	}
	var warnings []StockWarning
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		items := buildItems(inv.ID, in.Items)
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		var derr error
		if warnings, derr = decrementAll(tx, items); derr != nil {
			return derr
		}
		return tx.Model(&models.Setting{}).
			Where("key = ?", models.NextInvoiceNumberKey).
			Update("value", gorm.Expr("CAST(CAST(value AS INTEGER) + 1 AS TEXT)")).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &inv, warnings, nil
}

// Update edits an unpaid invoice. When items are supplied the old stock effect
// is fully reversed, the item set replaced and the new effect applied; totals
// are recomputed from the new set. When items are nil only the scalar fields
// change and totals stay as they are.
func (s *InvoiceService) Update(id uint, in UpdateInvoiceInput) ([]StockWarning, error) {
	if in.Items != nil && len(in.Items) == 0 {
		return nil, ErrNoItems
	}
	var warnings []StockWarning
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}
		if inv.PaymentReceived {
			return ErrInvoicePaid
		}

		updates := map[string]any{}
		if in.CustomerID != nil {
			updates["customer_id"] = *in.CustomerID
		}
		if in.InvoiceDate != nil {
			updates["invoice_date"] = *in.InvoiceDate
		}
		if in.PaymentTerms != nil {
			updates["payment_terms"] = *in.PaymentTerms
		}

		if in.Items != nil {
			var oldItems []models.InvoiceItem
			if err := tx.Where("invoice_id = ?", id).Find(&oldItems).Error; err != nil {
				return err
			}
			if err := incrementAll(tx, oldItems); err != nil {
				return err
			}
			if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
			subtotal, taxAmount, totalAmount := ComputeTotals(in.Items)
			updates["subtotal"] = subtotal
			updates["tax_amount"] = taxAmount
			updates["total_amount"] = totalAmount

			items := buildItems(id, in.Items)
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
			var derr error
			if warnings, derr = decrementAll(tx, items); derr != nil {
				return derr
			}
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Invoice{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return warnings, nil
}

// RecordPayment flips payment_received in a single guarded update so two
// concurrent attempts cannot both succeed. Zero affected rows means the
// invoice is unknown or already paid; no distinction is made.
func (s *InvoiceService) RecordPayment(id uint, paymentDate time.Time, paymentAmount float64) (*models.Invoice, error) {
	res := s.db.Model(&models.Invoice{}).
		Where("id = ? AND payment_received = ?", id, false).
		Updates(map[string]any{
			"payment_received": true,
			"payment_date":     paymentDate,
			"payment_amount":   paymentAmount,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFoundOrPaid
	}
	var inv models.Invoice
	if err := s.db.First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// Delete restores stock for every item and removes the invoice with its items.
// Paid invoices are deletable; only editing is locked after payment.
func (s *InvoiceService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var items []models.InvoiceItem
		if err := tx.Where("invoice_id = ?", id).Find(&items).Error; err != nil {
			return err
		}
		if err := incrementAll(tx, items); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Invoice{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvoiceNotFound
		}
		return nil
	})
}

// Get returns one invoice with its items in insertion order, joined with the
// customer fields the dashboard displays.
func (s *InvoiceService) Get(id uint) (*InvoiceSummary, []models.InvoiceItem, error) {
	var row InvoiceSummary
	res := s.db.Table("invoices").
		Select("invoices.*, customers.name AS customer_name, customers.email AS customer_email, customers.phone AS customer_phone, customers.address AS customer_address, customers.gstin AS customer_gstin").
		Joins("LEFT JOIN customers ON customers.id = invoices.customer_id").
		Where("invoices.id = ?", id).
		Scan(&row)
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil, ErrInvoiceNotFound
	}
	var items []models.InvoiceItem
	if err := s.db.Where("invoice_id = ?", id).Order("id").Find(&items).Error; err != nil {
		return nil, nil, err
	}
	return &row, items, nil
}

// List applies the structured filter set and returns invoice summaries newest
// first.
func (s *InvoiceService) List(f ListFilters) ([]InvoiceSummary, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.Table("invoices").
		Select("invoices.*, customers.name AS customer_name, customers.email AS customer_email, customers.phone AS customer_phone, customers.address AS customer_address, customers.gstin AS customer_gstin").
		Joins("LEFT JOIN customers ON customers.id = invoices.customer_id")
	switch f.Status {
	case "paid":
		q = q.Where("invoices.payment_received = ?", true)
	case "unpaid":
		q = q.Where("invoices.payment_received = ?", false)
	}
	if f.CustomerName != "" {
		q = q.Where("LOWER(customers.name) LIKE ?", "%"+strings.ToLower(f.CustomerName)+"%")
	}
	if f.CustomerPhone != "" {
		q = q.Where("LOWER(customers.phone) LIKE ?", "%"+strings.ToLower(f.CustomerPhone)+"%")
	}
	if f.DateFrom != nil {
		q = q.Where("invoices.invoice_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("invoices.invoice_date <= ?", *f.DateTo)
	}
	rows := []InvoiceSummary{}
	if err := q.Order("invoices.id DESC").Limit(limit).Offset(f.Offset).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
