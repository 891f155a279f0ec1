package repository

import (
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"gorm.io/gorm"
)

type MaterialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

func (r *MaterialRepository) Create(m *entity.Material) error {
	return r.db.Create(m).Error
}

func (r *MaterialRepository) GetByID(storeID, id string) (*entity.Material, error) {
	var m entity.Material
	err := r.db.Where("id = ? AND store_id = ? AND deleted_at IS NULL", id, storeID).First(&m).Error
	return &m, err
}

func (r *MaterialRepository) Update(m *entity.Material) error {
	return r.db.Save(m).Error
}

// SoftDelete marca o material como removido. A checagem de uso ativo é
// responsabilidade do serviço, antes de chamar aqui.
func (r *MaterialRepository) SoftDelete(storeID, id string) error {
	return r.db.Model(&entity.Material{}).
		Where("id = ? AND store_id = ?", id, storeID).
		Update("deleted_at", gorm.Expr("NOW()")).Error
}

type MaterialListParams struct {
	Keyword string
	Page    int
	Size    int
}

func (r *MaterialRepository) List(storeID string, params MaterialListParams) ([]entity.Material, int64, error) {
	query := r.db.Model(&entity.Material{}).Where("store_id = ? AND deleted_at IS NULL", storeID)
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("name ILIKE ? OR sku ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var materials []entity.Material
	err := query.Order("name ASC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&materials).Error
	return materials, total, err
}

// CountBomReferences conta linhas de ficha técnica que apontam para o material.
func (r *MaterialRepository) CountBomReferences(storeID, materialID string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.ProductBom{}).
		Where("store_id = ? AND material_id = ?", storeID, materialID).
		Count(&count).Error
	return count, err
}

// CountActiveBatches conta lotes não consumidos do material.
func (r *MaterialRepository) CountActiveBatches(storeID, materialID string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.MaterialBatch{}).
		Where("store_id = ? AND material_id = ? AND status <> ?", storeID, materialID, entity.BatchStatusConsumed).
		Count(&count).Error
	return count, err
}

// ListBelowMinStock lista materiais cujo estoque disponível somado (na
// unidade base não convertida; lotes são recebidos na unidade base ou
// comparados pelo serviço) está abaixo do mínimo configurado.
func (r *MaterialRepository) ListBelowMinStock(storeID string) ([]entity.Material, error) {
	var materials []entity.Material
	err := r.db.Raw(`
		SELECT m.* FROM materials m
		WHERE m.store_id = ? AND m.deleted_at IS NULL AND m.min_stock > 0
		AND COALESCE((
			SELECT SUM(b.quantity) FROM material_batches b
			WHERE b.material_id = m.id AND b.status = ?
		), 0) < m.min_stock
	`, storeID, entity.BatchStatusAvailable).Scan(&materials).Error
	return materials, err
}
