package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/fnsdeividy/sales-pdv-backend/internal/unitconv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transições legais da ordem de produção. finished e canceled são
// terminais.
var legalTransitions = map[string][]string{
	entity.OrderStatusDraft:      {entity.OrderStatusInProgress, entity.OrderStatusCanceled},
	entity.OrderStatusInProgress: {entity.OrderStatusFinished, entity.OrderStatusCanceled},
}

func canTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ProductionService ciclo de vida das ordens de produção. A finalização
// é a única operação multi-linha: roda inteira dentro de uma transação.
type ProductionService struct {
	orders   *repository.OrderRepository
	products *repository.ProductRepository
	batches  *repository.BatchRepository
	catalog  *CatalogService
	costing  *CostingService
	db       *gorm.DB

	defaultCostingMethod string
}

func NewProductionService(repos *repository.Repositories, catalog *CatalogService, costing *CostingService, db *gorm.DB, defaultCostingMethod string) *ProductionService {
	if defaultCostingMethod != entity.CostingMethodWAC {
		defaultCostingMethod = entity.CostingMethodFIFO
	}
	return &ProductionService{
		orders:               repos.Order,
		products:             repos.Product,
		batches:              repos.Batch,
		catalog:              catalog,
		costing:              costing,
		db:                   db,
		defaultCostingMethod: defaultCostingMethod,
	}
}

type CreateOrderRequest struct {
	ProductID            string          `json:"product_id" binding:"required"`
	PlannedQty           decimal.Decimal `json:"planned_qty" binding:"required"`
	PlannedUnit          string          `json:"planned_unit" binding:"required"`
	CostingMethod        string          `json:"costing_method"` // vazio usa o padrão da loja
	OverheadPercent      decimal.Decimal `json:"overhead_percent"`
	PackagingCostPerUnit decimal.Decimal `json:"packaging_cost_per_unit"`
	Notes                string          `json:"notes"`
}

// Create cria a ordem em rascunho. O método de custeio é congelado aqui:
// mudar o padrão da loja depois não altera ordens já criadas.
func (s *ProductionService) Create(storeID string, req CreateOrderRequest) (*entity.ProductionOrder, error) {
	if req.PlannedQty.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Field: "planned_qty", Msg: "deve ser maior que zero"}
	}
	if !unitconv.IsKnown(req.PlannedUnit) {
		return nil, &ValidationError{Field: "planned_unit", Msg: "unidade desconhecida: " + req.PlannedUnit}
	}
	method := req.CostingMethod
	if method == "" {
		method = s.defaultCostingMethod
	}
	if method != entity.CostingMethodFIFO && method != entity.CostingMethodWAC {
		return nil, &ValidationError{Field: "costing_method", Msg: "método desconhecido: " + method}
	}
	product, err := s.products.GetByID(storeID, req.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "produto", ID: req.ProductID}
	}
	if err != nil {
		return nil, err
	}

	batchCode, err := s.nextBatchCode(storeID, product)
	if err != nil {
		return nil, fmt.Errorf("gerar código de lote: %w", err)
	}

	order := &entity.ProductionOrder{
		ID:                   uuid.New().String(),
		StoreID:              storeID,
		ProductID:            req.ProductID,
		PlannedQty:           req.PlannedQty,
		PlannedUnit:          req.PlannedUnit,
		CostingMethod:        method,
		OverheadPercent:      req.OverheadPercent,
		PackagingCostPerUnit: req.PackagingCostPerUnit,
		Status:               entity.OrderStatusDraft,
		BatchCode:            batchCode,
		Notes:                req.Notes,
	}
	if err := s.orders.Create(order); err != nil {
		return nil, fmt.Errorf("criar ordem de produção: %w", err)
	}
	return order, nil
}

// nextBatchCode monta <3 letras do produto><AAMMDD><sequência diária>.
func (s *ProductionService) nextBatchCode(storeID string, product *entity.Product) (string, error) {
	now := time.Now()
	seq, err := s.orders.CountCreatedOn(storeID, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%03d", productPrefix(product.Name), now.Format("060102"), seq+1), nil
}

// productPrefix extrai as três primeiras letras do nome, maiúsculas,
// completando com X quando o nome é curto demais.
func productPrefix(name string) string {
	var letters []rune
	for _, r := range strings.ToUpper(name) {
		if unicode.IsLetter(r) && r < 128 {
			letters = append(letters, r)
			if len(letters) == 3 {
				break
			}
		}
	}
	for len(letters) < 3 {
		letters = append(letters, 'X')
	}
	return string(letters)
}

func (s *ProductionService) Get(storeID, id string) (*entity.ProductionOrder, error) {
	order, err := s.orders.GetByID(storeID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "ordem", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *ProductionService) List(storeID string, params repository.OrderListParams) ([]entity.ProductionOrder, int64, error) {
	return s.orders.List(storeID, params)
}

func (s *ProductionService) ListConsumptions(storeID, orderID string) ([]entity.ProductionConsumption, error) {
	if _, err := s.Get(storeID, orderID); err != nil {
		return nil, err
	}
	return s.orders.ListConsumptions(storeID, orderID)
}

// Start move draft → in_progress após a checagem branda de
// disponibilidade sobre a produção planejada: falha só quando algum
// material está totalmente indisponível. Disponibilidade parcial é
// tolerada aqui — a alocação dura acontece na finalização, dentro da
// transação.
func (s *ProductionService) Start(storeID, id string) (*entity.ProductionOrder, error) {
	order, err := s.Get(storeID, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(order.Status, entity.OrderStatusInProgress) {
		return nil, &InvalidTransitionError{From: order.Status, To: entity.OrderStatusInProgress}
	}

	consumptions, err := s.costing.CalculateMaterialConsumptions(storeID, order.ProductID, order.PlannedQty, order.PlannedUnit)
	if err != nil {
		return nil, err
	}
	var missing []MaterialShortage
	for _, cons := range consumptions {
		availability, err := s.catalog.CheckAvailability(storeID, cons.MaterialID, cons.FinalQty, cons.RequiredUnit)
		if err != nil {
			return nil, err
		}
		if availability.Status == AvailabilityUnavailable {
			missing = append(missing, MaterialShortage{
				MaterialID:   cons.MaterialID,
				MaterialName: cons.MaterialName,
				Required:     cons.FinalQty,
				Unit:         cons.RequiredUnit,
			})
		}
	}
	if len(missing) > 0 {
		return nil, &InsufficientMaterialsError{Missing: missing}
	}

	now := time.Now()
	order.Status = entity.OrderStatusInProgress
	order.StartedAt = &now
	if err := s.orders.Update(order); err != nil {
		return nil, fmt.Errorf("iniciar ordem: %w", err)
	}
	return order, nil
}

type FinishOrderRequest struct {
	ActualQty decimal.Decimal `json:"actual_qty" binding:"required"`
}

// Finish move in_progress → finished dentro de uma única transação:
// recalcula o consumo pela produção real, aloca pelo método congelado,
// fecha o custo, debita os lotes (travados), grava consumo, entrada de
// produto acabado e cache de custo. Qualquer falha desfaz tudo — consumo
// parcial nunca é observável; a ordem permanece in_progress e a chamada
// pode ser repetida.
func (s *ProductionService) Finish(ctx context.Context, storeID, id string, req FinishOrderRequest) (*entity.ProductionOrder, error) {
	if req.ActualQty.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Field: "actual_qty", Msg: "deve ser maior que zero"}
	}
	order, err := s.Get(storeID, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(order.Status, entity.OrderStatusFinished) {
		return nil, &InvalidTransitionError{From: order.Status, To: entity.OrderStatusFinished}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		consumptions, err := s.costing.CalculateMaterialConsumptions(storeID, order.ProductID, req.ActualQty, order.PlannedUnit)
		if err != nil {
			return err
		}

		// Lotes lidos com SELECT ... FOR UPDATE: finalizações concorrentes
		// sobre os mesmos materiais serializam na trava.
		allocations, err := s.costing.Allocate(storeID, order.CostingMethod, consumptions,
			func(materialID string) ([]entity.MaterialBatch, error) {
				return s.batches.ListAvailableForUpdate(tx, storeID, materialID)
			})
		if err != nil {
			return err
		}

		breakdown := rollupCost(req.ActualQty, order.PackagingCostPerUnit, order.OverheadPercent, allocations)

		if err := s.costing.consumeMaterials(tx, storeID, order.ID, allocations); err != nil {
			return err
		}

		now := time.Now()
		order.Status = entity.OrderStatusFinished
		order.FinishedAt = &now
		order.ActualQty = req.ActualQty
		order.TotalMaterialCost = breakdown.MaterialCost
		order.TotalPackagingCost = breakdown.PackagingCost
		order.TotalOverheadCost = breakdown.OverheadCost
		order.TotalCost = breakdown.TotalCost
		order.UnitCost = breakdown.UnitCost
		if err := s.orders.SaveWithTx(tx, order); err != nil {
			return fmt.Errorf("atualizar ordem: %w", err)
		}

		fg := &entity.FinishedGoodsInventory{
			ID:        uuid.New().String(),
			StoreID:   storeID,
			ProductID: order.ProductID,
			OrderID:   order.ID,
			Quantity:  req.ActualQty,
			Unit:      order.PlannedUnit,
			UnitCost:  breakdown.UnitCost,
			BatchCode: order.BatchCode,
		}
		if err := s.orders.CreateFinishedGoodsWithTx(tx, fg); err != nil {
			return fmt.Errorf("registrar produto acabado: %w", err)
		}

		return s.costing.updateCostCache(tx, storeID, order.ProductID, breakdown.UnitCost, order.CostingMethod)
	})
	if err != nil {
		return nil, err
	}

	s.costing.warmCostCache(ctx, storeID, order.ProductID, order.UnitCost, order.CostingMethod)
	return order, nil
}

// Cancel é legal a partir de draft ou in_progress; ordens finalizadas
// não se cancelam. O início não reserva lote nenhum (checagem branda
// apenas), então não há reserva a liberar aqui.
func (s *ProductionService) Cancel(storeID, id string) (*entity.ProductionOrder, error) {
	order, err := s.Get(storeID, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(order.Status, entity.OrderStatusCanceled) {
		return nil, &InvalidTransitionError{From: order.Status, To: entity.OrderStatusCanceled}
	}
	order.Status = entity.OrderStatusCanceled
	if err := s.orders.Update(order); err != nil {
		return nil, fmt.Errorf("cancelar ordem: %w", err)
	}
	return order, nil
}

// Delete só aceita rascunhos: a partir do momento em que material se
// moveu, a ordem faz parte da trilha de auditoria.
func (s *ProductionService) Delete(storeID, id string) error {
	order, err := s.Get(storeID, id)
	if err != nil {
		return err
	}
	if order.Status != entity.OrderStatusDraft {
		return &InvalidTransitionError{From: order.Status, To: "deleted"}
	}
	return s.orders.SoftDelete(storeID, id)
}
