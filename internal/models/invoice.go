package models

import "time"

// Invoicing models
type Invoice struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	CustomerID   uint          `gorm:"index;not null" json:"customer_id"`
	Customer     *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	InvoiceDate  time.Time     `gorm:"not null" json:"invoice_date"`
	PaymentTerms string        `gorm:"size:100;not null;default:'On Receipt'" json:"payment_terms"`

	// Derived amounts, always recomputed from items, never taken from input.
	Subtotal    float64 `gorm:"not null" json:"subtotal"`
	TaxAmount   float64 `gorm:"not null" json:"tax_amount"`
	TotalAmount float64 `gorm:"not null" json:"total_amount"`

	PaymentReceived bool       `gorm:"not null;default:false" json:"payment_received"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	PaymentAmount   float64    `json:"payment_amount"`

	CreatedBy uint      `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// CanEdit returns true while the invoice is still unpaid. Deletion is
// intentionally allowed even after payment.
func (i *Invoice) CanEdit() bool { return !i.PaymentReceived }

// InvoiceItem is owned exclusively by its invoice and replaced wholesale on
// every update. ProductName is denormalized so the line survives deletion or
// renaming of the referenced product.
type InvoiceItem struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	InvoiceID    uint     `gorm:"index;not null" json:"invoice_id"`
	ProductID    *uint    `gorm:"index" json:"product_id,omitempty"`
	Product      *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"-"`
	ProductName  string   `gorm:"size:255;not null" json:"product_name"`
	SerialNumber string   `gorm:"size:100" json:"serial_number,omitempty"`
	Warranty     string   `gorm:"size:100" json:"warranty,omitempty"`
	Quantity     int      `gorm:"not null" json:"quantity"`
	Price        float64  `gorm:"not null" json:"price"`
	CGST         float64  `gorm:"not null;default:0" json:"cgst"`
	SGST         float64  `gorm:"not null;default:0" json:"sgst"`
	IGST         float64  `gorm:"not null;default:0" json:"igst"`
	Total        float64  `gorm:"not null" json:"total"`
}
