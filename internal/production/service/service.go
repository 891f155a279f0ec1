package service

import (
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services agrupa os serviços do motor de produção.
type Services struct {
	Catalog    *CatalogService
	Costing    *CostingService
	Production *ProductionService
}

// Options parâmetros de custeio vindos da configuração.
type Options struct {
	DefaultCostingMethod string
	CostCacheTTL         int // segundos; zero usa o padrão de 24h
}

func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, opts Options) *Services {
	converter := NewConverter(repos.Conversion)
	catalog := NewCatalogService(repos, converter)
	costing := NewCostingService(repos, converter, rdb, opts.CostCacheTTL)
	production := NewProductionService(repos, catalog, costing, db, opts.DefaultCostingMethod)
	return &Services{
		Catalog:    catalog,
		Costing:    costing,
		Production: production,
	}
}
