package repository

import (
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(p *entity.Product) error {
	return r.db.Create(p).Error
}

func (r *ProductRepository) GetByID(storeID, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.Where("id = ? AND store_id = ? AND deleted_at IS NULL", id, storeID).First(&p).Error
	return &p, err
}
