package repository

import "gorm.io/gorm"

// Repositories coleção de repositórios do motor de produção.
type Repositories struct {
	Material   *MaterialRepository
	Batch      *BatchRepository
	Bom        *BomRepository
	Product    *ProductRepository
	Order      *OrderRepository
	Conversion *ConversionRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Material:   NewMaterialRepository(db),
		Batch:      NewBatchRepository(db),
		Bom:        NewBomRepository(db),
		Product:    NewProductRepository(db),
		Order:      NewOrderRepository(db),
		Conversion: NewConversionRepository(db),
	}
}
