package repository

import (
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"gorm.io/gorm"
)

type BomRepository struct {
	db *gorm.DB
}

func NewBomRepository(db *gorm.DB) *BomRepository {
	return &BomRepository{db: db}
}

func (r *BomRepository) Create(line *entity.ProductBom) error {
	return r.db.Create(line).Error
}

func (r *BomRepository) GetByID(storeID, id string) (*entity.ProductBom, error) {
	var line entity.ProductBom
	err := r.db.Where("id = ? AND store_id = ?", id, storeID).First(&line).Error
	return &line, err
}

func (r *BomRepository) Update(line *entity.ProductBom) error {
	return r.db.Save(line).Error
}

func (r *BomRepository) Delete(storeID, id string) error {
	return r.db.Where("id = ? AND store_id = ?", id, storeID).
		Delete(&entity.ProductBom{}).Error
}

// ListByProduct lista a ficha técnica do produto com os materiais carregados.
func (r *BomRepository) ListByProduct(storeID, productID string) ([]entity.ProductBom, error) {
	var lines []entity.ProductBom
	err := r.db.Preload("Material").
		Where("store_id = ? AND product_id = ?", storeID, productID).
		Order("created_at ASC").Find(&lines).Error
	return lines, err
}
