package entity

import "gorm.io/gorm"

// AutoMigrate migra todas as tabelas do motor de produção.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Catálogo
		&Material{},
		&MaterialBatch{},
		&UnitConversion{},
		&Product{},
		&ProductBom{},

		// Produção
		&ProductionOrder{},
		&ProductionConsumption{},
		&FinishedGoodsInventory{},

		// Custo
		&ProductCostCache{},
	)
}
