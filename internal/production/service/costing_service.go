package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/fnsdeividy/sales-pdv-backend/internal/unitconv"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultCostCacheTTL = 24 * time.Hour

// CostingService cálculo de consumo, alocação FIFO/WAC, fechamento de
// custo e sugestão de preço.
type CostingService struct {
	products  *repository.ProductRepository
	boms      *repository.BomRepository
	batches   *repository.BatchRepository
	orders    *repository.OrderRepository
	converter *Converter
	rdb       *redis.Client // opcional; nil desliga o cache quente
	cacheTTL  time.Duration
}

func NewCostingService(repos *repository.Repositories, converter *Converter, rdb *redis.Client, cacheTTLSeconds int) *CostingService {
	ttl := defaultCostCacheTTL
	if cacheTTLSeconds > 0 {
		ttl = time.Duration(cacheTTLSeconds) * time.Second
	}
	return &CostingService{
		products:  repos.Product,
		boms:      repos.Bom,
		batches:   repos.Batch,
		orders:    repos.Order,
		converter: converter,
		rdb:       rdb,
		cacheTTL:  ttl,
	}
}

// MaterialConsumption necessidade de um insumo para uma produção.
type MaterialConsumption struct {
	MaterialID   string          `json:"material_id"`
	MaterialName string          `json:"material_name"`
	RequiredQty  decimal.Decimal `json:"required_qty"` // escalada, antes da perda
	RequiredUnit string          `json:"required_unit"`
	WastePercent decimal.Decimal `json:"waste_percent"`
	FinalQty     decimal.Decimal `json:"final_qty"` // com perda aplicada

	material *entity.Material
}

// CalculateMaterialConsumptions escala a ficha técnica do produto para a
// produção pedida. Produto sem ficha técnica devolve lista vazia, não
// erro: o chamador entende "sem receita, sem alocação".
func (s *CostingService) CalculateMaterialConsumptions(storeID, productID string, outputQty decimal.Decimal, outputUnit string) ([]MaterialConsumption, error) {
	product, err := s.products.GetByID(storeID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "produto", ID: productID}
	}
	if err != nil {
		return nil, err
	}
	lines, err := s.boms.ListByProduct(storeID, productID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []MaterialConsumption{}, nil
	}

	baseQty, err := unitconv.Convert(outputQty, outputUnit, product.BaseUnit)
	if err != nil {
		return nil, err
	}
	factor := baseQty.Div(entity.BaseRecipeSize)

	consumptions := make([]MaterialConsumption, 0, len(lines))
	for _, line := range lines {
		scaled := line.Quantity.Mul(factor)
		name := ""
		if line.Material != nil {
			name = line.Material.Name
		}
		consumptions = append(consumptions, MaterialConsumption{
			MaterialID:   line.MaterialID,
			MaterialName: name,
			RequiredQty:  scaled,
			RequiredUnit: line.Unit,
			WastePercent: line.WastePercent,
			FinalQty:     scaled.Mul(percentFactor(line.WastePercent)),
			material:     line.Material,
		})
	}
	return consumptions, nil
}

// batchPortion fatia de um lote vista na unidade da necessidade, colhida
// no momento da alocação. O consumo WAC reaproveita exatamente este
// retrato para drenar os lotes — nunca reenumera o estoque.
type batchPortion struct {
	batch     *entity.MaterialBatch
	qtyInUnit decimal.Decimal
}

// Allocation fatia de consumo precificada. BatchID preenchido sob FIFO,
// nulo sob WAC.
type Allocation struct {
	MaterialID   string          `json:"material_id"`
	MaterialName string          `json:"material_name"`
	BatchID      *string         `json:"batch_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`

	material       *entity.Material
	batch          *entity.MaterialBatch
	portions       []batchPortion
	totalAvailable decimal.Decimal
}

// allocateFIFO percorre os lotes disponíveis do mais antigo para o mais
// novo, consumindo cada um até zerar antes de tocar o próximo.
func allocateFIFO(cons MaterialConsumption, batches []*entity.MaterialBatch, convert convertFn) ([]Allocation, error) {
	remaining := cons.FinalQty
	available := decimal.Zero
	allocations := make([]Allocation, 0, len(batches))

	for _, b := range batches {
		qtyInUnit, err := convert(b.Quantity, b.Unit, cons.RequiredUnit, cons.material)
		if err != nil {
			return nil, err
		}
		if !qtyInUnit.IsPositive() {
			continue
		}
		available = available.Add(qtyInUnit)
		if !remaining.IsPositive() {
			continue
		}
		unitCost := b.Quantity.Mul(b.UnitCost).Div(qtyInUnit)

		take := decimal.Min(remaining, qtyInUnit)
		batchID := b.ID
		allocations = append(allocations, Allocation{
			MaterialID:   cons.MaterialID,
			MaterialName: cons.MaterialName,
			BatchID:      &batchID,
			Quantity:     take,
			Unit:         cons.RequiredUnit,
			UnitCost:     unitCost,
			TotalCost:    take.Mul(unitCost),
			material:     cons.material,
			batch:        b,
		})
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		return nil, &InsufficientStockError{
			MaterialID:   cons.MaterialID,
			MaterialName: cons.MaterialName,
			Required:     cons.FinalQty,
			Available:    available,
			Shortfall:    remaining,
			Unit:         cons.RequiredUnit,
		}
	}
	return allocations, nil
}

// allocateWAC precifica a necessidade inteira ao custo médio ponderado de
// todos os lotes disponíveis e guarda o retrato dos lotes para o consumo
// proporcional.
func allocateWAC(cons MaterialConsumption, batches []*entity.MaterialBatch, convert convertFn) (*Allocation, error) {
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	portions := make([]batchPortion, 0, len(batches))

	for _, b := range batches {
		qtyInUnit, err := convert(b.Quantity, b.Unit, cons.RequiredUnit, cons.material)
		if err != nil {
			return nil, err
		}
		if !qtyInUnit.IsPositive() {
			continue
		}
		totalQty = totalQty.Add(qtyInUnit)
		totalValue = totalValue.Add(b.Quantity.Mul(b.UnitCost))
		portions = append(portions, batchPortion{batch: b, qtyInUnit: qtyInUnit})
	}

	if totalQty.LessThan(cons.FinalQty) {
		return nil, &InsufficientStockError{
			MaterialID:   cons.MaterialID,
			MaterialName: cons.MaterialName,
			Required:     cons.FinalQty,
			Available:    totalQty,
			Shortfall:    cons.FinalQty.Sub(totalQty),
			Unit:         cons.RequiredUnit,
		}
	}

	wac := totalValue.Div(totalQty)
	return &Allocation{
		MaterialID:     cons.MaterialID,
		MaterialName:   cons.MaterialName,
		Quantity:       cons.FinalQty,
		Unit:           cons.RequiredUnit,
		UnitCost:       wac,
		TotalCost:      cons.FinalQty.Mul(wac),
		material:       cons.material,
		portions:       portions,
		totalAvailable: totalQty,
	}, nil
}

// Allocate aloca as necessidades contra os lotes disponíveis pelo método
// pedido, sem mutar estoque. fetch busca os lotes (com ou sem trava,
// conforme o chamador).
func (s *CostingService) Allocate(storeID, method string, consumptions []MaterialConsumption,
	fetch func(materialID string) ([]entity.MaterialBatch, error)) ([]Allocation, error) {

	convert := s.converter.fn(storeID)
	var result []Allocation
	for _, cons := range consumptions {
		rows, err := fetch(cons.MaterialID)
		if err != nil {
			return nil, err
		}
		batches := make([]*entity.MaterialBatch, len(rows))
		for i := range rows {
			batches[i] = &rows[i]
		}

		switch method {
		case entity.CostingMethodWAC:
			alloc, err := allocateWAC(cons, batches, convert)
			if err != nil {
				return nil, err
			}
			result = append(result, *alloc)
		default:
			allocs, err := allocateFIFO(cons, batches, convert)
			if err != nil {
				return nil, err
			}
			result = append(result, allocs...)
		}
	}
	return result, nil
}

// CostBreakdown fechamento de custo de uma produção.
type CostBreakdown struct {
	MaterialCost  decimal.Decimal `json:"material_cost"`
	PackagingCost decimal.Decimal `json:"packaging_cost"`
	OverheadCost  decimal.Decimal `json:"overhead_cost"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
}

// rollupCost fecha o custo: material + embalagem, overhead percentual
// sobre os dois, e custo unitário pela quantidade produzida. outputQty
// deve ser positiva — o chamador valida antes.
func rollupCost(outputQty, packagingCostPerUnit, overheadPercent decimal.Decimal, allocations []Allocation) CostBreakdown {
	materialCost := decimal.Zero
	for _, a := range allocations {
		materialCost = materialCost.Add(a.TotalCost)
	}
	packagingCost := outputQty.Mul(packagingCostPerUnit)
	overheadCost := materialCost.Add(packagingCost).Mul(overheadPercent).Div(decimal.NewFromInt(100))
	totalCost := materialCost.Add(packagingCost).Add(overheadCost)
	return CostBreakdown{
		MaterialCost:  materialCost,
		PackagingCost: packagingCost,
		OverheadCost:  overheadCost,
		TotalCost:     totalCost,
		UnitCost:      totalCost.Div(outputQty),
	}
}

// consumeMaterials grava os registros de consumo e debita os lotes,
// dentro da transação do chamador. FIFO debita o lote nomeado; WAC drena
// cada lote do retrato da alocação na proporção da sua participação no
// total disponível.
func (s *CostingService) consumeMaterials(tx *gorm.DB, storeID, orderID string, allocations []Allocation) error {
	convert := s.converter.fn(storeID)
	records := make([]entity.ProductionConsumption, 0, len(allocations))

	for i := range allocations {
		alloc := &allocations[i]
		records = append(records, entity.ProductionConsumption{
			ID:         uuid.New().String(),
			StoreID:    storeID,
			OrderID:    orderID,
			MaterialID: alloc.MaterialID,
			BatchID:    alloc.BatchID,
			Quantity:   alloc.Quantity,
			Unit:       alloc.Unit,
			UnitCost:   alloc.UnitCost,
			TotalCost:  alloc.TotalCost,
		})

		if alloc.BatchID != nil {
			// FIFO: debita o lote nomeado na unidade nativa dele.
			if err := s.drainBatch(tx, convert, alloc.batch, alloc.Quantity, alloc.Unit, alloc.material); err != nil {
				return err
			}
			continue
		}

		// WAC: consumo proporcional sobre o retrato da alocação. O último
		// lote recebe o resto exato para a soma fechar na quantidade alocada.
		drawn := decimal.Zero
		for j, portion := range alloc.portions {
			var draw decimal.Decimal
			if j == len(alloc.portions)-1 {
				draw = alloc.Quantity.Sub(drawn)
			} else {
				share := portion.qtyInUnit.Div(alloc.totalAvailable)
				draw = alloc.Quantity.Mul(share)
			}
			drawn = drawn.Add(draw)
			if err := s.drainBatch(tx, convert, portion.batch, draw, alloc.Unit, alloc.material); err != nil {
				return err
			}
		}
	}

	return s.orders.CreateConsumptionsWithTx(tx, records)
}

// drainBatch converte a quantidade para a unidade nativa do lote, debita
// e grampeia em zero — a quantidade de um lote nunca fica negativa; ao
// zerar, o status vira consumed.
func (s *CostingService) drainBatch(tx *gorm.DB, convert convertFn, b *entity.MaterialBatch, qty decimal.Decimal, unit string, m *entity.Material) error {
	native, err := convert(qty, unit, b.Unit, m)
	if err != nil {
		return err
	}
	b.Quantity = b.Quantity.Sub(native)
	if !b.Quantity.IsPositive() {
		b.Quantity = decimal.Zero
		b.Status = entity.BatchStatusConsumed
	}
	if err := s.batches.SaveWithTx(tx, b); err != nil {
		return fmt.Errorf("debitar lote %s: %w", b.ID, err)
	}
	return nil
}

// updateCostCache grava o custo mais recente do produto na transação.
func (s *CostingService) updateCostCache(tx *gorm.DB, storeID, productID string, unitCost decimal.Decimal, method string) error {
	return s.orders.UpsertCostCacheWithTx(tx, &entity.ProductCostCache{
		ID:            uuid.New().String(),
		StoreID:       storeID,
		ProductID:     productID,
		UnitCost:      unitCost,
		CostingMethod: method,
		ComputedAt:    time.Now(),
	})
}

type cachedCost struct {
	UnitCost      decimal.Decimal `json:"unit_cost"`
	CostingMethod string          `json:"costing_method"`
	ComputedAt    time.Time       `json:"computed_at"`
}

func costCacheKey(storeID, productID string) string {
	return fmt.Sprintf("pdv:cost:%s:%s", storeID, productID)
}

// warmCostCache publica o custo no redis após o commit. Falha de redis é
// silenciosa: a tabela continua sendo a fonte de verdade.
func (s *CostingService) warmCostCache(ctx context.Context, storeID, productID string, unitCost decimal.Decimal, method string) {
	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(cachedCost{UnitCost: unitCost, CostingMethod: method, ComputedAt: time.Now()})
	if err != nil {
		return
	}
	s.rdb.Set(ctx, costCacheKey(storeID, productID), payload, s.cacheTTL)
}

// cachedUnitCost lê o custo do redis e, na falta, da tabela, reaquecendo
// o redis no caminho.
func (s *CostingService) cachedUnitCost(ctx context.Context, storeID, productID string) (*cachedCost, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, costCacheKey(storeID, productID)).Bytes()
		if err == nil {
			var c cachedCost
			if json.Unmarshal(raw, &c) == nil {
				return &c, nil
			}
		}
	}
	cache, err := s.orders.GetCostCache(storeID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoCostInformation
	}
	if err != nil {
		return nil, err
	}
	c := &cachedCost{UnitCost: cache.UnitCost, CostingMethod: cache.CostingMethod, ComputedAt: cache.ComputedAt}
	s.warmCostCache(ctx, storeID, productID, c.UnitCost, c.CostingMethod)
	return c, nil
}

type SuggestedPriceRequest struct {
	OutputQty     decimal.Decimal `json:"output_qty" binding:"required"`
	OutputUnit    string          `json:"output_unit" binding:"required"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
}

type SuggestedPrice struct {
	ProductID      string          `json:"product_id"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	MarkupPercent  decimal.Decimal `json:"markup_percent"`
	SuggestedPrice decimal.Decimal `json:"suggested_price"`
	Source         string          `json:"source"` // dynamic | cache
}

// GetSuggestedPrice tenta o custo dinâmico (escala + WAC, sem mutar
// estoque); em qualquer falha cai no custo em cache; só erra com
// ErrNoCostInformation quando os dois caminhos estão vazios.
func (s *CostingService) GetSuggestedPrice(ctx context.Context, storeID, productID string, req SuggestedPriceRequest) (*SuggestedPrice, error) {
	if req.OutputQty.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Field: "output_qty", Msg: "deve ser maior que zero"}
	}

	result := &SuggestedPrice{ProductID: productID, MarkupPercent: req.MarkupPercent}

	unitCost, err := s.dynamicUnitCost(storeID, productID, req.OutputQty, req.OutputUnit)
	if err == nil {
		result.UnitCost = unitCost
		result.Source = "dynamic"
	} else {
		var nfe *NotFoundError
		if errors.As(err, &nfe) {
			return nil, err
		}
		cached, cerr := s.cachedUnitCost(ctx, storeID, productID)
		if cerr != nil {
			return nil, cerr
		}
		result.UnitCost = cached.UnitCost
		result.Source = "cache"
	}

	result.SuggestedPrice = result.UnitCost.Mul(percentFactor(req.MarkupPercent))
	return result, nil
}

// dynamicUnitCost custo unitário de material por WAC sobre o estoque
// atual, sem consumir nada.
func (s *CostingService) dynamicUnitCost(storeID, productID string, outputQty decimal.Decimal, outputUnit string) (decimal.Decimal, error) {
	consumptions, err := s.CalculateMaterialConsumptions(storeID, productID, outputQty, outputUnit)
	if err != nil {
		return decimal.Zero, err
	}
	if len(consumptions) == 0 {
		return decimal.Zero, &RecipeNotFoundError{ProductID: productID}
	}
	allocations, err := s.Allocate(storeID, entity.CostingMethodWAC, consumptions,
		func(materialID string) ([]entity.MaterialBatch, error) {
			return s.batches.ListAvailable(storeID, materialID)
		})
	if err != nil {
		return decimal.Zero, err
	}
	materialCost := decimal.Zero
	for _, a := range allocations {
		materialCost = materialCost.Add(a.TotalCost)
	}
	return materialCost.Div(outputQty), nil
}

type CostHistoryEntry struct {
	OrderID       string          `json:"order_id"`
	BatchCode     string          `json:"batch_code"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	CostingMethod string          `json:"costing_method"`
	FinishedAt    *time.Time      `json:"finished_at"`
}

// GetProductCostHistory histórico de custo unitário das ordens
// finalizadas do produto.
func (s *CostingService) GetProductCostHistory(storeID, productID string, limit int) ([]CostHistoryEntry, error) {
	if _, err := s.products.GetByID(storeID, productID); errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "produto", ID: productID}
	} else if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListCostHistory(storeID, productID, limit)
	if err != nil {
		return nil, err
	}
	history := make([]CostHistoryEntry, 0, len(orders))
	for _, o := range orders {
		history = append(history, CostHistoryEntry{
			OrderID:       o.ID,
			BatchCode:     o.BatchCode,
			Quantity:      o.ActualQty,
			Unit:          o.PlannedUnit,
			UnitCost:      o.UnitCost,
			TotalCost:     o.TotalCost,
			CostingMethod: o.CostingMethod,
			FinishedAt:    o.FinishedAt,
		})
	}
	return history, nil
}
