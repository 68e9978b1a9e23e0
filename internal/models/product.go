package models

import "time"

// Product domain model. StockQuantity never goes below zero: every decrement
// is guarded at write time (see services.InvoiceService).
type Product struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	DefaultPrice   float64   `gorm:"not null" json:"default_price"`
	DefaultTaxRate float64   `gorm:"not null;default:18" json:"default_tax_rate"` // percent, e.g. 18 for 18%
	StockQuantity  int       `gorm:"not null;default:0" json:"stock_quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
