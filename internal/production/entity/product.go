package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product produto acabado. O CRUD completo vive no módulo de catálogo;
// o motor de custeio só lê os campos necessários para escala e custo.
type Product struct {
	ID        string          `json:"id" gorm:"primaryKey;size:36"`
	StoreID   string          `json:"store_id" gorm:"size:36;not null;index"`
	Name      string          `json:"name" gorm:"size:128;not null"`
	SKU       string          `json:"sku" gorm:"size:64"`
	BaseUnit  string          `json:"base_unit" gorm:"size:8;not null"`
	CostPrice decimal.Decimal `json:"cost_price" gorm:"type:decimal(15,4);default:0"`
	SalePrice decimal.Decimal `json:"sale_price" gorm:"type:decimal(15,4);default:0"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`
}

func (Product) TableName() string {
	return "products"
}

// BaseRecipeSize tamanho de referência da receita: as quantidades da
// ficha técnica valem para 100 unidades da unidade base do produto.
var BaseRecipeSize = decimal.NewFromInt(100)

// ProductBom linha da ficha técnica (bill of materials) de um produto.
type ProductBom struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	StoreID      string          `json:"store_id" gorm:"size:36;not null;index"`
	ProductID    string          `json:"product_id" gorm:"size:36;not null;index"`
	MaterialID   string          `json:"material_id" gorm:"size:36;not null;index"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:decimal(15,4);not null"`
	Unit         string          `json:"unit" gorm:"size:8;not null"`
	WastePercent decimal.Decimal `json:"waste_percent" gorm:"type:decimal(5,2);default:0"` // 0–100
	Notes        string          `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Material *Material `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (ProductBom) TableName() string {
	return "product_boms"
}

// ProductCostCache último custo unitário calculado por produto, usado
// como fonte de preço quando o recálculo dinâmico não é possível.
type ProductCostCache struct {
	ID            string          `json:"id" gorm:"primaryKey;size:36"`
	StoreID       string          `json:"store_id" gorm:"size:36;not null;uniqueIndex:idx_cost_cache_product"`
	ProductID     string          `json:"product_id" gorm:"size:36;not null;uniqueIndex:idx_cost_cache_product"`
	UnitCost      decimal.Decimal `json:"unit_cost" gorm:"type:decimal(15,4);not null"`
	CostingMethod string          `json:"costing_method" gorm:"size:8;not null"`
	ComputedAt    time.Time       `json:"computed_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductCostCache) TableName() string {
	return "product_cost_caches"
}
