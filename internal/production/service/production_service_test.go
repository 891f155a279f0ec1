package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newProduction(db *gorm.DB) (*ProductionService, *repository.Repositories) {
	repos := repository.NewRepositories(db)
	converter := NewConverter(repos.Conversion)
	catalog := NewCatalogService(repos, converter)
	costing := NewCostingService(repos, converter, nil, 0)
	return NewProductionService(repos, catalog, costing, db, "fifo"), repos
}

func TestProductionOrderLifecycleFIFO(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, repos := newProduction(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Bolo Chocolate")
	m := testutil.SeedMaterial(t, db, store, "Farinha", "kg")
	testutil.SeedBatch(t, db, m, dec("100"), dec("2"), time.Now().Add(-24*time.Hour))
	testutil.SeedBomLine(t, db, p, m, dec("10"), "kg", dec("10"))

	order, err := svc.Create(store, CreateOrderRequest{
		ProductID:            p.ID,
		PlannedQty:           dec("50"),
		PlannedUnit:          "un",
		CostingMethod:        "fifo",
		OverheadPercent:      dec("5"),
		PackagingCostPerUnit: dec("0.5"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.Status != entity.OrderStatusDraft {
		t.Fatalf("new order should be draft, got %s", order.Status)
	}
	if ok, _ := regexp.MatchString(`^[A-Z]{3}\d{9}$`, order.BatchCode); !ok {
		t.Errorf("unexpected batch code format: %s", order.BatchCode)
	}

	order, err = svc.Start(store, order.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if order.Status != entity.OrderStatusInProgress || order.StartedAt == nil {
		t.Fatalf("order should be in_progress with started_at set")
	}

	order, err = svc.Finish(context.Background(), store, order.ID, FinishOrderRequest{ActualQty: dec("50")})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if order.Status != entity.OrderStatusFinished || order.FinishedAt == nil {
		t.Fatalf("order should be finished with finished_at set")
	}

	// 50 unidades: 5kg da receita + 10% de perda = 5.5kg a 2/kg = 11
	if !order.TotalMaterialCost.Equal(dec("11")) {
		t.Errorf("material: expected 11, got %s", order.TotalMaterialCost)
	}
	if !order.TotalPackagingCost.Equal(dec("25")) {
		t.Errorf("packaging: expected 25, got %s", order.TotalPackagingCost)
	}
	if !order.TotalOverheadCost.Equal(dec("1.8")) {
		t.Errorf("overhead: expected 1.8, got %s", order.TotalOverheadCost)
	}
	if !order.TotalCost.Equal(dec("37.8")) {
		t.Errorf("total: expected 37.8, got %s", order.TotalCost)
	}
	if !order.UnitCost.Equal(dec("0.756")) {
		t.Errorf("unit: expected 0.756, got %s", order.UnitCost)
	}

	// lote debitado em 5.5kg
	var b entity.MaterialBatch
	if err := db.Where("material_id = ?", m.ID).First(&b).Error; err != nil {
		t.Fatalf("reload batch: %v", err)
	}
	if !b.Quantity.Equal(dec("94.5")) {
		t.Errorf("expected batch at 94.5, got %s", b.Quantity)
	}

	// consumo auditável apontando o lote
	consumptions, err := repos.Order.ListConsumptions(store, order.ID)
	if err != nil {
		t.Fatalf("ListConsumptions: %v", err)
	}
	if len(consumptions) != 1 {
		t.Fatalf("expected 1 consumption record, got %d", len(consumptions))
	}
	if consumptions[0].BatchID == nil {
		t.Errorf("FIFO consumption should name its batch")
	}
	if !consumptions[0].Quantity.Equal(dec("5.5")) {
		t.Errorf("expected consumption 5.5, got %s", consumptions[0].Quantity)
	}

	// entrada de produto acabado
	var fg entity.FinishedGoodsInventory
	if err := db.Where("order_id = ?", order.ID).First(&fg).Error; err != nil {
		t.Fatalf("finished goods entry missing: %v", err)
	}
	if !fg.UnitCost.Equal(order.UnitCost) {
		t.Errorf("finished goods unit cost should match order")
	}

	// cache de custo atualizado
	cache, err := repos.Order.GetCostCache(store, p.ID)
	if err != nil {
		t.Fatalf("GetCostCache: %v", err)
	}
	if !cache.UnitCost.Equal(dec("0.756")) {
		t.Errorf("expected cached unit cost 0.756, got %s", cache.UnitCost)
	}
}

func TestFinishWACDrainsProportionally(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, repos := newProduction(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Bolo Cenoura")
	m := testutil.SeedMaterial(t, db, store, "Farinha", "kg")
	testutil.SeedBatch(t, db, m, dec("10"), dec("2"), time.Now().Add(-48*time.Hour))
	testutil.SeedBatch(t, db, m, dec("10"), dec("4"), time.Now().Add(-24*time.Hour))
	testutil.SeedBomLine(t, db, p, m, dec("10"), "kg", dec("10"))

	order, err := svc.Create(store, CreateOrderRequest{
		ProductID:     p.ID,
		PlannedQty:    dec("50"),
		PlannedUnit:   "un",
		CostingMethod: "wac",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Start(store, order.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	order, err = svc.Finish(context.Background(), store, order.ID, FinishOrderRequest{ActualQty: dec("50")})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// WAC = (10×2 + 10×4)/20 = 3; 5.5kg × 3 = 16.5
	if !order.TotalMaterialCost.Equal(dec("16.5")) {
		t.Errorf("material: expected 16.5, got %s", order.TotalMaterialCost)
	}

	// consumo sem lote nomeado
	consumptions, err := repos.Order.ListConsumptions(store, order.ID)
	if err != nil {
		t.Fatalf("ListConsumptions: %v", err)
	}
	if len(consumptions) != 1 || consumptions[0].BatchID != nil {
		t.Errorf("WAC consumption should be a single record without batch")
	}

	// drenagem proporcional: 2.75kg de cada lote
	var batches []entity.MaterialBatch
	if err := db.Where("material_id = ?", m.ID).Order("received_at ASC").Find(&batches).Error; err != nil {
		t.Fatalf("reload batches: %v", err)
	}
	for i, b := range batches {
		if !b.Quantity.Equal(dec("7.25")) {
			t.Errorf("batch %d: expected 7.25 remaining, got %s", i, b.Quantity)
		}
	}
}

func TestStartFailsWhenMaterialFullyUnavailable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newProduction(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Torta Limão")
	m := testutil.SeedMaterial(t, db, store, "Limão", "kg")
	testutil.SeedBomLine(t, db, p, m, dec("5"), "kg", decimal.Zero)

	order, err := svc.Create(store, CreateOrderRequest{
		ProductID:   p.ID,
		PlannedQty:  dec("100"),
		PlannedUnit: "un",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Start(store, order.ID)
	var missing *InsufficientMaterialsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected InsufficientMaterialsError, got %v", err)
	}

	order, err = svc.Get(store, order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if order.Status != entity.OrderStatusDraft {
		t.Errorf("failed start should leave order in draft, got %s", order.Status)
	}
}

func TestStartToleratesPartialAvailability(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newProduction(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Pudim")
	m := testutil.SeedMaterial(t, db, store, "Leite", "l")
	testutil.SeedBatch(t, db, m, dec("1"), dec("5"), time.Now())
	testutil.SeedBomLine(t, db, p, m, dec("10"), "l", decimal.Zero)

	order, err := svc.Create(store, CreateOrderRequest{
		ProductID:   p.ID,
		PlannedQty:  dec("100"),
		PlannedUnit: "un",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Start(store, order.ID); err != nil {
		t.Fatalf("partial availability should not block start: %v", err)
	}
}

func TestFinishRollsBackOnInsufficientStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, repos := newProduction(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Pão de Queijo")
	m := testutil.SeedMaterial(t, db, store, "Polvilho", "kg")
	testutil.SeedBatch(t, db, m, dec("3"), dec("8"), time.Now())
	testutil.SeedBomLine(t, db, p, m, dec("10"), "kg", dec("10"))

	order, err := svc.Create(store, CreateOrderRequest{
		ProductID:   p.ID,
		PlannedQty:  dec("50"),
		PlannedUnit: "un",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Start(store, order.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// precisa de 5.5kg, só há 3
	_, err = svc.Finish(context.Background(), store, order.ID, FinishOrderRequest{ActualQty: dec("50")})
	var ise *InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	// nada pode ter sido gravado: ordem segue in_progress, lote intacto
	order, _ = svc.Get(store, order.ID)
	if order.Status != entity.OrderStatusInProgress {
		t.Errorf("failed finish should leave order in_progress, got %s", order.Status)
	}
	var b entity.MaterialBatch
	db.Where("material_id = ?", m.ID).First(&b)
	if !b.Quantity.Equal(dec("3")) {
		t.Errorf("batch should be untouched at 3, got %s", b.Quantity)
	}
	consumptions, _ := repos.Order.ListConsumptions(store, order.ID)
	if len(consumptions) != 0 {
		t.Errorf("no consumption should survive the rollback, got %d", len(consumptions))
	}
}

func TestFinishRollsBackAfterConsumption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, repos := newProduction(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Pão de Queijo")
	m := testutil.SeedMaterial(t, db, store, "Polvilho", "kg")
	testutil.SeedBatch(t, db, m, dec("10"), dec("8"), time.Now())
	testutil.SeedBomLine(t, db, p, m, dec("10"), "kg", decimal.Zero)

	order, err := svc.Create(store, CreateOrderRequest{
		ProductID:   p.ID,
		PlannedQty:  dec("50"),
		PlannedUnit: "un",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Start(store, order.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// registro conflitante dispara o índice único de order_id na gravação
	// do produto acabado, já depois do débito dos lotes
	fg := &entity.FinishedGoodsInventory{
		ID:        "fg-conflict",
		StoreID:   store,
		ProductID: p.ID,
		OrderID:   order.ID,
		Quantity:  dec("1"),
		Unit:      "un",
		UnitCost:  dec("1"),
		BatchCode: "XXX000000000",
	}
	if err := db.Create(fg).Error; err != nil {
		t.Fatalf("seed conflicting finished goods: %v", err)
	}

	if _, err := svc.Finish(context.Background(), store, order.ID, FinishOrderRequest{ActualQty: dec("50")}); err == nil {
		t.Fatalf("expected finish to fail on finished goods conflict")
	}

	// o débito dos lotes e os consumos já tinham sido gravados na
	// transação: tudo precisa voltar atrás
	order, _ = svc.Get(store, order.ID)
	if order.Status != entity.OrderStatusInProgress {
		t.Errorf("failed finish should leave order in_progress, got %s", order.Status)
	}
	var b entity.MaterialBatch
	db.Where("material_id = ?", m.ID).First(&b)
	if !b.Quantity.Equal(dec("10")) {
		t.Errorf("batch should be restored to 10, got %s", b.Quantity)
	}
	if b.Status != entity.BatchStatusAvailable {
		t.Errorf("batch should remain available, got %s", b.Status)
	}
	consumptions, _ := repos.Order.ListConsumptions(store, order.ID)
	if len(consumptions) != 0 {
		t.Errorf("no consumption should survive the rollback, got %d", len(consumptions))
	}
}

func TestOrderTransitionRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newProduction(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Coxinha")

	order, err := svc.Create(store, CreateOrderRequest{
		ProductID:   p.ID,
		PlannedQty:  dec("10"),
		PlannedUnit: "un",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// finish direto de draft é ilegal
	_, err = svc.Finish(context.Background(), store, order.ID, FinishOrderRequest{ActualQty: dec("10")})
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError for draft→finished, got %v", err)
	}

	// cancelar de draft é legal e terminal
	order, err = svc.Cancel(store, order.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if order.Status != entity.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", order.Status)
	}
	if _, err := svc.Start(store, order.ID); !errors.As(err, &ite) {
		t.Errorf("expected InvalidTransitionError for canceled→in_progress, got %v", err)
	}
	if _, err := svc.Cancel(store, order.ID); !errors.As(err, &ite) {
		t.Errorf("expected InvalidTransitionError for canceled→canceled, got %v", err)
	}
}

func TestDeleteOnlyDraftOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newProduction(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Esfiha")
	m := testutil.SeedMaterial(t, db, store, "Carne", "kg")
	testutil.SeedBatch(t, db, m, dec("50"), dec("20"), time.Now())
	testutil.SeedBomLine(t, db, p, m, dec("5"), "kg", decimal.Zero)

	draft, err := svc.Create(store, CreateOrderRequest{ProductID: p.ID, PlannedQty: dec("10"), PlannedUnit: "un"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(store, draft.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if _, err := svc.Get(store, draft.ID); err == nil {
		t.Errorf("deleted order should not be found")
	}

	started, err := svc.Create(store, CreateOrderRequest{ProductID: p.ID, PlannedQty: dec("10"), PlannedUnit: "un"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Start(store, started.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var ite *InvalidTransitionError
	if err := svc.Delete(store, started.ID); !errors.As(err, &ite) {
		t.Errorf("expected InvalidTransitionError deleting in_progress order, got %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newProduction(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Quibe")

	var ve *ValidationError
	if _, err := svc.Create(store, CreateOrderRequest{ProductID: p.ID, PlannedQty: dec("-1"), PlannedUnit: "un"}); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for negative qty, got %v", err)
	}
	if _, err := svc.Create(store, CreateOrderRequest{ProductID: p.ID, PlannedQty: dec("10"), PlannedUnit: "caixa"}); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for unknown unit, got %v", err)
	}
	if _, err := svc.Create(store, CreateOrderRequest{ProductID: p.ID, PlannedQty: dec("10"), PlannedUnit: "un", CostingMethod: "lifo"}); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for unknown costing method, got %v", err)
	}
	var nfe *NotFoundError
	if _, err := svc.Create(store, CreateOrderRequest{ProductID: "missing", PlannedQty: dec("10"), PlannedUnit: "un"}); !errors.As(err, &nfe) {
		t.Errorf("expected NotFoundError for missing product, got %v", err)
	}

	// método padrão da loja quando o pedido não informa
	order, err := svc.Create(store, CreateOrderRequest{ProductID: p.ID, PlannedQty: dec("10"), PlannedUnit: "un"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.CostingMethod != entity.CostingMethodFIFO {
		t.Errorf("expected default costing method fifo, got %s", order.CostingMethod)
	}
}
