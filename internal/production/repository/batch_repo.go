package repository

import (
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) Create(b *entity.MaterialBatch) error {
	return r.db.Create(b).Error
}

func (r *BatchRepository) GetByID(storeID, id string) (*entity.MaterialBatch, error) {
	var b entity.MaterialBatch
	err := r.db.Where("id = ? AND store_id = ?", id, storeID).First(&b).Error
	return &b, err
}

// ListAvailable lista lotes disponíveis do material em ordem FIFO
// (received_at crescente).
func (r *BatchRepository) ListAvailable(storeID, materialID string) ([]entity.MaterialBatch, error) {
	var batches []entity.MaterialBatch
	err := r.db.Where("store_id = ? AND material_id = ? AND status = ?",
		storeID, materialID, entity.BatchStatusAvailable).
		Order("received_at ASC").Find(&batches).Error
	return batches, err
}

// ListAvailableForUpdate é a variante transacional de ListAvailable:
// tranca as linhas (SELECT ... FOR UPDATE) até o fim da transação, para
// que finalizações concorrentes sobre o mesmo material serializem.
func (r *BatchRepository) ListAvailableForUpdate(tx *gorm.DB, storeID, materialID string) ([]entity.MaterialBatch, error) {
	var batches []entity.MaterialBatch
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("store_id = ? AND material_id = ? AND status = ?",
			storeID, materialID, entity.BatchStatusAvailable).
		Order("received_at ASC").Find(&batches).Error
	return batches, err
}

// SaveWithTx persiste o lote dentro da transação do chamador.
func (r *BatchRepository) SaveWithTx(tx *gorm.DB, b *entity.MaterialBatch) error {
	return tx.Save(b).Error
}

type BatchListParams struct {
	MaterialID string
	Status     string
	Page       int
	Size       int
}

func (r *BatchRepository) List(storeID string, params BatchListParams) ([]entity.MaterialBatch, int64, error) {
	query := r.db.Model(&entity.MaterialBatch{}).Where("store_id = ?", storeID)
	if params.MaterialID != "" {
		query = query.Where("material_id = ?", params.MaterialID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var batches []entity.MaterialBatch
	err := query.Order("received_at ASC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&batches).Error
	return batches, total, err
}
