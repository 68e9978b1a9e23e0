package models

import "time"

// Setting is a single key/value pair. The reserved NextInvoiceNumberKey holds
// the display sequence number advanced once per successful invoice creation.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

const NextInvoiceNumberKey = "next_invoice_number"
