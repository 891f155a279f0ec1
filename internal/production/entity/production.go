package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status de ordem de produção
const (
	OrderStatusDraft      = "draft"
	OrderStatusInProgress = "in_progress"
	OrderStatusFinished   = "finished"
	OrderStatusCanceled   = "canceled"
)

// Métodos de custeio
const (
	CostingMethodFIFO = "fifo"
	CostingMethodWAC  = "wac"
)

// ProductionOrder ordem de produção. O método de custeio é congelado na
// criação para que mudanças no padrão da loja não afetem ordens em curso.
// Os campos de custo só são preenchidos quando status = finished.
type ProductionOrder struct {
	ID                   string          `json:"id" gorm:"primaryKey;size:36"`
	StoreID              string          `json:"store_id" gorm:"size:36;not null;index"`
	ProductID            string          `json:"product_id" gorm:"size:36;not null;index"`
	PlannedQty           decimal.Decimal `json:"planned_qty" gorm:"type:decimal(15,4);not null"`
	PlannedUnit          string          `json:"planned_unit" gorm:"size:8;not null"`
	ActualQty            decimal.Decimal `json:"actual_qty" gorm:"type:decimal(15,4);default:0"`
	CostingMethod        string          `json:"costing_method" gorm:"size:8;not null"`
	OverheadPercent      decimal.Decimal `json:"overhead_percent" gorm:"type:decimal(5,2);default:0"`
	PackagingCostPerUnit decimal.Decimal `json:"packaging_cost_per_unit" gorm:"type:decimal(15,4);default:0"`
	Status               string          `json:"status" gorm:"size:16;not null;default:draft"`
	BatchCode            string          `json:"batch_code" gorm:"size:32;not null"`
	Notes                string          `json:"notes" gorm:"type:text"`

	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`

	TotalMaterialCost  decimal.Decimal `json:"total_material_cost" gorm:"type:decimal(15,4);default:0"`
	TotalPackagingCost decimal.Decimal `json:"total_packaging_cost" gorm:"type:decimal(15,4);default:0"`
	TotalOverheadCost  decimal.Decimal `json:"total_overhead_cost" gorm:"type:decimal(15,4);default:0"`
	TotalCost          decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,4);default:0"`
	UnitCost           decimal.Decimal `json:"unit_cost" gorm:"type:decimal(15,4);default:0"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Product      *Product                `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Consumptions []ProductionConsumption `json:"consumptions,omitempty" gorm:"foreignKey:OrderID"`
}

func (ProductionOrder) TableName() string {
	return "production_orders"
}

// ProductionConsumption registro imutável do que foi consumido na
// finalização de uma ordem, a que custo. BatchID é nulo sob custeio WAC.
type ProductionConsumption struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	StoreID    string          `json:"store_id" gorm:"size:36;not null;index"`
	OrderID    string          `json:"order_id" gorm:"size:36;not null;index"`
	MaterialID string          `json:"material_id" gorm:"size:36;not null;index"`
	BatchID    *string         `json:"batch_id" gorm:"size:36"`
	Quantity   decimal.Decimal `json:"quantity" gorm:"type:decimal(15,4);not null"`
	Unit       string          `json:"unit" gorm:"size:8;not null"`
	UnitCost   decimal.Decimal `json:"unit_cost" gorm:"type:decimal(15,4);not null"`
	TotalCost  decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,4);not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (ProductionConsumption) TableName() string {
	return "production_consumptions"
}

// FinishedGoodsInventory entrada de produto acabado gerada na finalização
// de uma ordem. Tabela append-only.
type FinishedGoodsInventory struct {
	ID        string          `json:"id" gorm:"primaryKey;size:36"`
	StoreID   string          `json:"store_id" gorm:"size:36;not null;index"`
	ProductID string          `json:"product_id" gorm:"size:36;not null;index"`
	OrderID   string          `json:"order_id" gorm:"size:36;not null;uniqueIndex"`
	Quantity  decimal.Decimal `json:"quantity" gorm:"type:decimal(15,4);not null"`
	Unit      string          `json:"unit" gorm:"size:8;not null"`
	UnitCost  decimal.Decimal `json:"unit_cost" gorm:"type:decimal(15,4);not null"`
	BatchCode string          `json:"batch_code" gorm:"size:32;not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (FinishedGoodsInventory) TableName() string {
	return "finished_goods_inventory"
}
