package services

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ramsupport/invoicemaker/internal/models"
)

var ErrSettingNotFound = errors.New("setting_not_found")

// SettingsService stores the key/value pairs backing the dashboard and the
// invoice-number counter.
type SettingsService struct{ DB *gorm.DB }

func NewSettingsService(db *gorm.DB) *SettingsService { return &SettingsService{DB: db} }

// GetAll returns every setting as a key→value map.
func (s *SettingsService) GetAll() (map[string]string, error) {
	var rows []models.Setting
	if err := s.DB.Order("key").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *SettingsService) Get(key string) (string, error) {
	var row models.Setting
	if err := s.DB.First(&row, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSettingNotFound
		}
		return "", err
	}
	return row.Value, nil
}

// Set upserts a single key.
func (s *SettingsService) Set(key, value string) (*models.Setting, error) {
	row := models.Setting{Key: key, Value: value}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// BulkSet upserts several keys in one transaction; a failure leaves none of
// them applied.
func (s *SettingsService) BulkSet(values map[string]string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			row := models.Setting{Key: k, Value: v}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
