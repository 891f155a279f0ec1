package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/fnsdeividy/sales-pdv-backend/internal/unitconv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogService CRUD de insumos, lotes e fichas técnicas, mais as
// consultas de disponibilidade e escala de receita.
type CatalogService struct {
	materials   *repository.MaterialRepository
	batches     *repository.BatchRepository
	boms        *repository.BomRepository
	products    *repository.ProductRepository
	conversions *repository.ConversionRepository
	converter   *Converter
}

func NewCatalogService(repos *repository.Repositories, converter *Converter) *CatalogService {
	return &CatalogService{
		materials:   repos.Material,
		batches:     repos.Batch,
		boms:        repos.Bom,
		products:    repos.Product,
		conversions: repos.Conversion,
		converter:   converter,
	}
}

type CreateMaterialRequest struct {
	Name     string           `json:"name" binding:"required"`
	SKU      string           `json:"sku"`
	BaseUnit string           `json:"base_unit" binding:"required"`
	Density  *decimal.Decimal `json:"density"`
	MinStock decimal.Decimal  `json:"min_stock"`
}

func (s *CatalogService) CreateMaterial(storeID string, req CreateMaterialRequest) (*entity.Material, error) {
	if !unitconv.IsKnown(req.BaseUnit) {
		return nil, &ValidationError{Field: "base_unit", Msg: "unidade desconhecida: " + req.BaseUnit}
	}
	m := &entity.Material{
		ID:       uuid.New().String(),
		StoreID:  storeID,
		Name:     req.Name,
		SKU:      req.SKU,
		BaseUnit: req.BaseUnit,
		Density:  req.Density,
		MinStock: req.MinStock,
	}
	if err := s.materials.Create(m); err != nil {
		return nil, fmt.Errorf("criar material: %w", err)
	}
	return m, nil
}

func (s *CatalogService) GetMaterial(storeID, id string) (*entity.Material, error) {
	m, err := s.materials.GetByID(storeID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "material", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *CatalogService) ListMaterials(storeID string, params repository.MaterialListParams) ([]entity.Material, int64, error) {
	return s.materials.List(storeID, params)
}

type UpdateMaterialRequest struct {
	Name     string           `json:"name"`
	SKU      string           `json:"sku"`
	Density  *decimal.Decimal `json:"density"`
	MinStock *decimal.Decimal `json:"min_stock"`
}

func (s *CatalogService) UpdateMaterial(storeID, id string, req UpdateMaterialRequest) (*entity.Material, error) {
	m, err := s.GetMaterial(storeID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		m.Name = req.Name
	}
	if req.SKU != "" {
		m.SKU = req.SKU
	}
	if req.Density != nil {
		m.Density = req.Density
	}
	if req.MinStock != nil {
		m.MinStock = *req.MinStock
	}
	if err := s.materials.Update(m); err != nil {
		return nil, fmt.Errorf("atualizar material: %w", err)
	}
	return m, nil
}

// DeleteMaterial recusa a exclusão se o material aparece em alguma ficha
// técnica ou tem lote não consumido — protege ordens passadas e ativas.
func (s *CatalogService) DeleteMaterial(storeID, id string) error {
	if _, err := s.GetMaterial(storeID, id); err != nil {
		return err
	}
	bomRefs, err := s.materials.CountBomReferences(storeID, id)
	if err != nil {
		return err
	}
	activeBatches, err := s.materials.CountActiveBatches(storeID, id)
	if err != nil {
		return err
	}
	if bomRefs > 0 || activeBatches > 0 {
		return &MaterialInUseError{MaterialID: id, BomReferences: bomRefs, ActiveBatches: activeBatches}
	}
	return s.materials.SoftDelete(storeID, id)
}

func (s *CatalogService) ListLowStock(storeID string) ([]entity.Material, error) {
	return s.materials.ListBelowMinStock(storeID)
}

type ReceiveBatchRequest struct {
	MaterialID string          `json:"material_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Unit       string          `json:"unit" binding:"required"`
	UnitCost   decimal.Decimal `json:"unit_cost" binding:"required"`
	LotCode    string          `json:"lot_code"`
	Supplier   string          `json:"supplier"`
	ReceivedAt *time.Time      `json:"received_at"`
	ExpiresAt  *time.Time      `json:"expires_at"`
}

// ReceiveBatch registra a entrada de um lote. O custo total é congelado
// no recebimento (quantidade × custo unitário).
func (s *CatalogService) ReceiveBatch(storeID string, req ReceiveBatchRequest) (*entity.MaterialBatch, error) {
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Field: "quantity", Msg: "deve ser maior que zero"}
	}
	if !unitconv.IsKnown(req.Unit) {
		return nil, &ValidationError{Field: "unit", Msg: "unidade desconhecida: " + req.Unit}
	}
	if _, err := s.GetMaterial(storeID, req.MaterialID); err != nil {
		return nil, err
	}
	receivedAt := time.Now()
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}
	b := &entity.MaterialBatch{
		ID:         uuid.New().String(),
		StoreID:    storeID,
		MaterialID: req.MaterialID,
		Quantity:   req.Quantity,
		Unit:       req.Unit,
		UnitCost:   req.UnitCost,
		TotalCost:  req.Quantity.Mul(req.UnitCost),
		LotCode:    req.LotCode,
		Supplier:   req.Supplier,
		ReceivedAt: receivedAt,
		ExpiresAt:  req.ExpiresAt,
		Status:     entity.BatchStatusAvailable,
	}
	if err := s.batches.Create(b); err != nil {
		return nil, fmt.Errorf("registrar lote: %w", err)
	}
	return b, nil
}

func (s *CatalogService) ListBatches(storeID string, params repository.BatchListParams) ([]entity.MaterialBatch, int64, error) {
	return s.batches.List(storeID, params)
}

type BomLineRequest struct {
	MaterialID   string          `json:"material_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	Unit         string          `json:"unit" binding:"required"`
	WastePercent decimal.Decimal `json:"waste_percent"`
	Notes        string          `json:"notes"`
}

// AddBomLine adiciona uma linha à ficha técnica. As quantidades valem
// para o tamanho de referência de 100 unidades da unidade base do produto.
func (s *CatalogService) AddBomLine(storeID, productID string, req BomLineRequest) (*entity.ProductBom, error) {
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Field: "quantity", Msg: "deve ser maior que zero"}
	}
	if !unitconv.IsKnown(req.Unit) {
		return nil, &ValidationError{Field: "unit", Msg: "unidade desconhecida: " + req.Unit}
	}
	if req.WastePercent.IsNegative() || req.WastePercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, &ValidationError{Field: "waste_percent", Msg: "deve estar entre 0 e 100"}
	}
	if _, err := s.getProduct(storeID, productID); err != nil {
		return nil, err
	}
	if _, err := s.GetMaterial(storeID, req.MaterialID); err != nil {
		return nil, err
	}
	line := &entity.ProductBom{
		ID:           uuid.New().String(),
		StoreID:      storeID,
		ProductID:    productID,
		MaterialID:   req.MaterialID,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		WastePercent: req.WastePercent,
		Notes:        req.Notes,
	}
	if err := s.boms.Create(line); err != nil {
		return nil, fmt.Errorf("criar linha da ficha técnica: %w", err)
	}
	return line, nil
}

func (s *CatalogService) GetRecipe(storeID, productID string) ([]entity.ProductBom, error) {
	return s.boms.ListByProduct(storeID, productID)
}

func (s *CatalogService) DeleteBomLine(storeID, id string) error {
	if _, err := s.boms.GetByID(storeID, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "linha de ficha técnica", ID: id}
	} else if err != nil {
		return err
	}
	return s.boms.Delete(storeID, id)
}

type ConversionRuleRequest struct {
	MaterialID string          `json:"material_id" binding:"required"`
	FromUnit   string          `json:"from_unit" binding:"required"`
	ToUnit     string          `json:"to_unit" binding:"required"`
	Factor     decimal.Decimal `json:"factor" binding:"required"`
}

// AddConversionRule cadastra uma conversão específica do material, com
// precedência sobre a tabela genérica de fatores.
func (s *CatalogService) AddConversionRule(storeID string, req ConversionRuleRequest) (*entity.UnitConversion, error) {
	if req.Factor.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Field: "factor", Msg: "deve ser maior que zero"}
	}
	if _, err := s.GetMaterial(storeID, req.MaterialID); err != nil {
		return nil, err
	}
	rule := &entity.UnitConversion{
		ID:         uuid.New().String(),
		StoreID:    storeID,
		MaterialID: req.MaterialID,
		FromUnit:   req.FromUnit,
		ToUnit:     req.ToUnit,
		Factor:     req.Factor,
	}
	if err := s.conversions.Create(rule); err != nil {
		return nil, fmt.Errorf("criar regra de conversão: %w", err)
	}
	return rule, nil
}

// ListConversionRules lista as regras cadastradas para um insumo.
func (s *CatalogService) ListConversionRules(storeID, materialID string) ([]entity.UnitConversion, error) {
	if _, err := s.GetMaterial(storeID, materialID); err != nil {
		return nil, err
	}
	return s.conversions.ListByMaterial(storeID, materialID)
}

func (s *CatalogService) DeleteConversionRule(storeID, id string) error {
	if _, err := s.conversions.GetByID(storeID, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "regra de conversão", ID: id}
	} else if err != nil {
		return err
	}
	return s.conversions.Delete(storeID, id)
}

// Status de disponibilidade
const (
	AvailabilityAvailable   = "available"
	AvailabilityPartial     = "partial"
	AvailabilityUnavailable = "unavailable"
)

type BatchAvailability struct {
	BatchID    string          `json:"batch_id"`
	LotCode    string          `json:"lot_code"`
	Quantity   decimal.Decimal `json:"quantity"` // na unidade pedida
	Unit       string          `json:"unit"`
	UnitCost   decimal.Decimal `json:"unit_cost"` // na unidade pedida
	ReceivedAt time.Time       `json:"received_at"`
}

type AvailabilityResult struct {
	MaterialID     string              `json:"material_id"`
	TotalAvailable decimal.Decimal     `json:"total_available"`
	Status         string              `json:"status"`
	Shortfall      decimal.Decimal     `json:"shortfall"`
	Unit           string              `json:"unit"`
	Batches        []BatchAvailability `json:"batches"`
}

// CheckAvailability soma os lotes disponíveis do material, convertidos
// para a unidade pedida, em ordem FIFO.
func (s *CatalogService) CheckAvailability(storeID, materialID string, requiredQty decimal.Decimal, requiredUnit string) (*AvailabilityResult, error) {
	m, err := s.GetMaterial(storeID, materialID)
	if err != nil {
		return nil, err
	}
	batches, err := s.batches.ListAvailable(storeID, materialID)
	if err != nil {
		return nil, err
	}

	result := &AvailabilityResult{
		MaterialID:     materialID,
		TotalAvailable: decimal.Zero,
		Unit:           requiredUnit,
		Batches:        make([]BatchAvailability, 0, len(batches)),
	}
	for _, b := range batches {
		qty, err := s.converter.Convert(storeID, b.Quantity, b.Unit, requiredUnit, m)
		if err != nil {
			return nil, err
		}
		unitCost := convertUnitCost(b, qty)
		result.TotalAvailable = result.TotalAvailable.Add(qty)
		result.Batches = append(result.Batches, BatchAvailability{
			BatchID:    b.ID,
			LotCode:    b.LotCode,
			Quantity:   qty,
			Unit:       requiredUnit,
			UnitCost:   unitCost,
			ReceivedAt: b.ReceivedAt,
		})
	}

	switch {
	case result.TotalAvailable.GreaterThanOrEqual(requiredQty):
		result.Status = AvailabilityAvailable
		result.Shortfall = decimal.Zero
	case result.TotalAvailable.IsPositive():
		result.Status = AvailabilityPartial
		result.Shortfall = requiredQty.Sub(result.TotalAvailable)
	default:
		result.Status = AvailabilityUnavailable
		result.Shortfall = requiredQty
	}
	return result, nil
}

type ScaledIngredient struct {
	MaterialID   string          `json:"material_id"`
	MaterialName string          `json:"material_name"`
	BaseQty      decimal.Decimal `json:"base_qty"` // por 100 unidades base
	Unit         string          `json:"unit"`
	WastePercent decimal.Decimal `json:"waste_percent"`
	ScaledQty    decimal.Decimal `json:"scaled_qty"`
	FinalQty     decimal.Decimal `json:"final_qty"` // com perda aplicada
}

type ScaledRecipe struct {
	ProductID     string             `json:"product_id"`
	ScalingFactor decimal.Decimal    `json:"scaling_factor"`
	Ingredients   []ScaledIngredient `json:"ingredients"`
}

// ScaleRecipe escala a ficha técnica para a produção pedida. O fator de
// escala é a produção convertida para a unidade base do produto dividida
// pelo tamanho de referência (100).
func (s *CatalogService) ScaleRecipe(storeID, productID string, targetQty decimal.Decimal, targetUnit string) (*ScaledRecipe, error) {
	product, err := s.getProduct(storeID, productID)
	if err != nil {
		return nil, err
	}
	lines, err := s.boms.ListByProduct(storeID, productID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &RecipeNotFoundError{ProductID: productID}
	}

	baseQty, err := unitconv.Convert(targetQty, targetUnit, product.BaseUnit)
	if err != nil {
		return nil, err
	}
	factor := baseQty.Div(entity.BaseRecipeSize)

	recipe := &ScaledRecipe{
		ProductID:     productID,
		ScalingFactor: factor,
		Ingredients:   make([]ScaledIngredient, 0, len(lines)),
	}
	for _, line := range lines {
		scaled := line.Quantity.Mul(factor)
		final := scaled.Mul(percentFactor(line.WastePercent))
		name := ""
		if line.Material != nil {
			name = line.Material.Name
		}
		recipe.Ingredients = append(recipe.Ingredients, ScaledIngredient{
			MaterialID:   line.MaterialID,
			MaterialName: name,
			BaseQty:      line.Quantity,
			Unit:         line.Unit,
			WastePercent: line.WastePercent,
			ScaledQty:    scaled,
			FinalQty:     final,
		})
	}
	return recipe, nil
}

func (s *CatalogService) getProduct(storeID, id string) (*entity.Product, error) {
	p, err := s.products.GetByID(storeID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "produto", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// percentFactor devolve 1 + pct/100 (perda ou markup).
func percentFactor(pct decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(pct.Div(decimal.NewFromInt(100)))
}

// convertUnitCost reprecifica o custo unitário de um lote na unidade de
// destino, preservando o valor total (qty × custo é invariante).
func convertUnitCost(b entity.MaterialBatch, convertedQty decimal.Decimal) decimal.Decimal {
	if convertedQty.IsZero() {
		return decimal.Zero
	}
	return b.Quantity.Mul(b.UnitCost).Div(convertedQty)
}
