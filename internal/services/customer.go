package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Ramsupport/invoicemaker/internal/models"
)

var (
	ErrCustomerNotFound    = errors.New("customer_not_found")
	ErrCustomerHasInvoices = errors.New("customer_has_invoices")
)

// CustomerService carries the one piece of customer logic with an invariant:
// a customer referenced by any invoice cannot be deleted.
type CustomerService struct{ DB *gorm.DB }

func NewCustomerService(db *gorm.DB) *CustomerService { return &CustomerService{DB: db} }

// Delete removes a customer unless invoices reference it. The check and the
// delete run in one transaction so a concurrent invoice creation cannot slip
// between them.
func (s *CustomerService) Delete(id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var invoiceCount int64
		if err := tx.Model(&models.Invoice{}).Where("customer_id = ?", id).Count(&invoiceCount).Error; err != nil {
			return err
		}
		if invoiceCount > 0 {
			return ErrCustomerHasInvoices
		}
		res := tx.Delete(&models.Customer{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCustomerNotFound
		}
		return nil
	})
}
