package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status de lote de insumo
const (
	BatchStatusAvailable = "available"
	BatchStatusReserved  = "reserved"
	BatchStatusConsumed  = "consumed"
)

// Material insumo (matéria-prima)
type Material struct {
	ID       string           `json:"id" gorm:"primaryKey;size:36"`
	StoreID  string           `json:"store_id" gorm:"size:36;not null;index"`
	Name     string           `json:"name" gorm:"size:128;not null"`
	SKU      string           `json:"sku" gorm:"size:64"`
	BaseUnit string           `json:"base_unit" gorm:"size:8;not null"`
	Density  *decimal.Decimal `json:"density" gorm:"type:decimal(10,4)"` // g/ml, só para conversão massa↔volume
	MinStock decimal.Decimal  `json:"min_stock" gorm:"type:decimal(15,4);default:0"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Batches []MaterialBatch `json:"batches,omitempty" gorm:"foreignKey:MaterialID"`
}

func (Material) TableName() string {
	return "materials"
}

// MaterialBatch lote de insumo recebido a um custo específico.
// A ordenação FIFO é por received_at crescente.
type MaterialBatch struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	StoreID    string          `json:"store_id" gorm:"size:36;not null;index"`
	MaterialID string          `json:"material_id" gorm:"size:36;not null;index"`
	Quantity   decimal.Decimal `json:"quantity" gorm:"type:decimal(15,4);not null"`
	Unit       string          `json:"unit" gorm:"size:8;not null"`
	UnitCost   decimal.Decimal `json:"unit_cost" gorm:"type:decimal(15,4);not null"`
	TotalCost  decimal.Decimal `json:"total_cost" gorm:"type:decimal(15,4);not null"`
	LotCode    string          `json:"lot_code" gorm:"size:64"`
	Supplier   string          `json:"supplier" gorm:"size:128"`
	ReceivedAt time.Time       `json:"received_at" gorm:"not null;index"`
	ExpiresAt  *time.Time      `json:"expires_at"`
	Status     string          `json:"status" gorm:"size:16;not null;default:available"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Material *Material `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (MaterialBatch) TableName() string {
	return "material_batches"
}

// UnitConversion conversão específica por material, com precedência
// sobre a tabela genérica de fatores.
type UnitConversion struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	StoreID    string          `json:"store_id" gorm:"size:36;not null;index"`
	MaterialID string          `json:"material_id" gorm:"size:36;not null;index:idx_unit_conversions_lookup"`
	FromUnit   string          `json:"from_unit" gorm:"size:8;not null;index:idx_unit_conversions_lookup"`
	ToUnit     string          `json:"to_unit" gorm:"size:8;not null;index:idx_unit_conversions_lookup"`
	Factor     decimal.Decimal `json:"factor" gorm:"type:decimal(15,6);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UnitConversion) TableName() string {
	return "unit_conversions"
}
