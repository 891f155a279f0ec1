package repository

import (
	"time"

	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(o *entity.ProductionOrder) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) GetByID(storeID, id string) (*entity.ProductionOrder, error) {
	var o entity.ProductionOrder
	err := r.db.Preload("Consumptions").
		Where("id = ? AND store_id = ? AND deleted_at IS NULL", id, storeID).First(&o).Error
	return &o, err
}

func (r *OrderRepository) Update(o *entity.ProductionOrder) error {
	return r.db.Save(o).Error
}

// SaveWithTx persiste a ordem dentro da transação do chamador.
func (r *OrderRepository) SaveWithTx(tx *gorm.DB, o *entity.ProductionOrder) error {
	return tx.Save(o).Error
}

// SoftDelete remove uma ordem (apenas rascunhos; o serviço valida o status).
func (r *OrderRepository) SoftDelete(storeID, id string) error {
	return r.db.Model(&entity.ProductionOrder{}).
		Where("id = ? AND store_id = ?", id, storeID).
		Update("deleted_at", gorm.Expr("NOW()")).Error
}

type OrderListParams struct {
	Status    string
	ProductID string
	Page      int
	Size      int
}

func (r *OrderRepository) List(storeID string, params OrderListParams) ([]entity.ProductionOrder, int64, error) {
	query := r.db.Model(&entity.ProductionOrder{}).
		Where("store_id = ? AND deleted_at IS NULL", storeID)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.ProductID != "" {
		query = query.Where("product_id = ?", params.ProductID)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var orders []entity.ProductionOrder
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&orders).Error
	return orders, total, err
}

// CountCreatedOn conta ordens da loja criadas no dia, para a sequência
// diária do código de lote.
func (r *OrderRepository) CountCreatedOn(storeID string, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var count int64
	err := r.db.Model(&entity.ProductionOrder{}).
		Where("store_id = ? AND created_at >= ? AND created_at < ?", storeID, start, end).
		Count(&count).Error
	return count, err
}

// CreateConsumptionsWithTx grava os registros de consumo da finalização.
func (r *OrderRepository) CreateConsumptionsWithTx(tx *gorm.DB, records []entity.ProductionConsumption) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Create(&records).Error
}

func (r *OrderRepository) ListConsumptions(storeID, orderID string) ([]entity.ProductionConsumption, error) {
	var records []entity.ProductionConsumption
	err := r.db.Where("store_id = ? AND order_id = ?", storeID, orderID).
		Order("created_at ASC").Find(&records).Error
	return records, err
}

// CreateFinishedGoodsWithTx grava a entrada de produto acabado.
func (r *OrderRepository) CreateFinishedGoodsWithTx(tx *gorm.DB, fg *entity.FinishedGoodsInventory) error {
	return tx.Create(fg).Error
}

// UpsertCostCacheWithTx atualiza ou cria o custo mais recente do produto.
func (r *OrderRepository) UpsertCostCacheWithTx(tx *gorm.DB, cache *entity.ProductCostCache) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"unit_cost", "costing_method", "computed_at", "updated_at"}),
	}).Create(cache).Error
}

func (r *OrderRepository) GetCostCache(storeID, productID string) (*entity.ProductCostCache, error) {
	var cache entity.ProductCostCache
	err := r.db.Where("store_id = ? AND product_id = ?", storeID, productID).First(&cache).Error
	return &cache, err
}

// ListCostHistory lista ordens finalizadas do produto, da mais recente
// para a mais antiga, como histórico de custo unitário.
func (r *OrderRepository) ListCostHistory(storeID, productID string, limit int) ([]entity.ProductionOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []entity.ProductionOrder
	err := r.db.Where("store_id = ? AND product_id = ? AND status = ? AND deleted_at IS NULL",
		storeID, productID, entity.OrderStatusFinished).
		Order("finished_at DESC").Limit(limit).Find(&orders).Error
	return orders, err
}
