package repository

import (
	"errors"

	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"gorm.io/gorm"
)

type ConversionRepository struct {
	db *gorm.DB
}

func NewConversionRepository(db *gorm.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

func (r *ConversionRepository) Create(c *entity.UnitConversion) error {
	return r.db.Create(c).Error
}

func (r *ConversionRepository) ListByMaterial(storeID, materialID string) ([]entity.UnitConversion, error) {
	var rules []entity.UnitConversion
	err := r.db.Where("store_id = ? AND material_id = ?", storeID, materialID).
		Find(&rules).Error
	return rules, err
}

// Find busca a conversão específica material+origem+destino. Retorna
// (nil, nil) quando não há regra cadastrada — o chamador cai na tabela
// genérica de fatores.
func (r *ConversionRepository) Find(storeID, materialID, fromUnit, toUnit string) (*entity.UnitConversion, error) {
	var rule entity.UnitConversion
	err := r.db.Where("store_id = ? AND material_id = ? AND from_unit = ? AND to_unit = ?",
		storeID, materialID, fromUnit, toUnit).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ConversionRepository) GetByID(storeID, id string) (*entity.UnitConversion, error) {
	var rule entity.UnitConversion
	err := r.db.Where("id = ? AND store_id = ?", id, storeID).First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ConversionRepository) Delete(storeID, id string) error {
	return r.db.Where("id = ? AND store_id = ?", id, storeID).
		Delete(&entity.UnitConversion{}).Error
}
