package service

import (
	"errors"
	"testing"
	"time"

	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newCatalog(db *gorm.DB) (*CatalogService, *repository.Repositories) {
	repos := repository.NewRepositories(db)
	return NewCatalogService(repos, NewConverter(repos.Conversion)), repos
}

func TestCheckAvailabilityStatuses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newCatalog(db)
	store := testutil.TestStoreID

	m := testutil.SeedMaterial(t, db, store, "Farinha", "kg")
	testutil.SeedBatch(t, db, m, dec("12"), dec("2"), time.Now().Add(-48*time.Hour))
	testutil.SeedBatch(t, db, m, dec("8"), dec("3"), time.Now().Add(-24*time.Hour))

	full, err := svc.CheckAvailability(store, m.ID, dec("15"), "kg")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if full.Status != AvailabilityAvailable {
		t.Errorf("expected available, got %s", full.Status)
	}
	if !full.TotalAvailable.Equal(dec("20")) {
		t.Errorf("expected total 20, got %s", full.TotalAvailable)
	}

	partial, err := svc.CheckAvailability(store, m.ID, dec("25"), "kg")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if partial.Status != AvailabilityPartial {
		t.Errorf("expected partial, got %s", partial.Status)
	}
	if !partial.Shortfall.Equal(dec("5")) {
		t.Errorf("expected shortfall 5, got %s", partial.Shortfall)
	}

	empty := testutil.SeedMaterial(t, db, store, "Fermento", "g")
	none, err := svc.CheckAvailability(store, empty.ID, dec("100"), "g")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if none.Status != AvailabilityUnavailable {
		t.Errorf("expected unavailable, got %s", none.Status)
	}
	if !none.Shortfall.Equal(dec("100")) {
		t.Errorf("expected shortfall 100, got %s", none.Shortfall)
	}
}

func TestCheckAvailabilityConvertsUnits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newCatalog(db)
	store := testutil.TestStoreID

	m := testutil.SeedMaterial(t, db, store, "Açúcar", "kg")
	testutil.SeedBatch(t, db, m, dec("2"), dec("10"), time.Now())

	result, err := svc.CheckAvailability(store, m.ID, dec("500"), "g")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !result.TotalAvailable.Equal(dec("2000")) {
		t.Errorf("expected 2000g available, got %s", result.TotalAvailable)
	}
	// 2kg a 10/kg vistos em gramas: 0.01/g
	if !result.Batches[0].UnitCost.Equal(dec("0.01")) {
		t.Errorf("expected unit cost 0.01/g, got %s", result.Batches[0].UnitCost)
	}
}

func TestScaleRecipe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newCatalog(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Pão Francês")
	m := testutil.SeedMaterial(t, db, store, "Farinha", "kg")
	testutil.SeedBomLine(t, db, p, m, dec("10"), "kg", dec("10"))

	recipe, err := svc.ScaleRecipe(store, p.ID, dec("50"), "un")
	if err != nil {
		t.Fatalf("ScaleRecipe: %v", err)
	}
	if !recipe.ScalingFactor.Equal(dec("0.5")) {
		t.Errorf("expected factor 0.5, got %s", recipe.ScalingFactor)
	}
	ing := recipe.Ingredients[0]
	if !ing.ScaledQty.Equal(dec("5")) {
		t.Errorf("expected scaled 5, got %s", ing.ScaledQty)
	}
	if !ing.FinalQty.Equal(dec("5.5")) {
		t.Errorf("expected final 5.5 with 10%% waste, got %s", ing.FinalQty)
	}
}

func TestScaleRecipeWithoutBom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newCatalog(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Produto Vazio")
	_, err := svc.ScaleRecipe(store, p.ID, dec("10"), "un")
	var rnf *RecipeNotFoundError
	if !errors.As(err, &rnf) {
		t.Fatalf("expected RecipeNotFoundError, got %v", err)
	}
}

func TestDeleteMaterialInUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newCatalog(db)
	store := testutil.TestStoreID

	p := testutil.SeedProduct(t, db, store, "Bolo")
	m := testutil.SeedMaterial(t, db, store, "Ovo", "un")
	testutil.SeedBomLine(t, db, p, m, dec("30"), "un", decimal.Zero)

	err := svc.DeleteMaterial(store, m.ID)
	var inUse *MaterialInUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected MaterialInUseError, got %v", err)
	}

	free := testutil.SeedMaterial(t, db, store, "Canela", "g")
	if err := svc.DeleteMaterial(store, free.ID); err != nil {
		t.Fatalf("delete unused material: %v", err)
	}
	if _, err := svc.GetMaterial(store, free.ID); err == nil {
		t.Errorf("deleted material should not be found")
	}
}

func TestReceiveBatchFreezesTotalCost(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := newCatalog(db)
	store := testutil.TestStoreID

	m := testutil.SeedMaterial(t, db, store, "Leite", "l")
	b, err := svc.ReceiveBatch(store, ReceiveBatchRequest{
		MaterialID: m.ID,
		Quantity:   dec("10"),
		Unit:       "l",
		UnitCost:   dec("4.5"),
	})
	if err != nil {
		t.Fatalf("ReceiveBatch: %v", err)
	}
	if !b.TotalCost.Equal(dec("45")) {
		t.Errorf("expected frozen total 45, got %s", b.TotalCost)
	}
	if b.Status != entity.BatchStatusAvailable {
		t.Errorf("new batch should be available, got %s", b.Status)
	}
}

func TestConverterMaterialRulePrecedence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, repos := newCatalog(db)
	store := testutil.TestStoreID

	m := testutil.SeedMaterial(t, db, store, "Ovo", "un")
	conv := NewConverter(repos.Conversion)

	// sem regra: un→g não tem caminho genérico
	if _, err := conv.Convert(store, dec("2"), "un", "g", m); err == nil {
		t.Fatalf("expected error converting un→g without rule")
	}

	rule := &entity.UnitConversion{
		ID:         "rule-1",
		StoreID:    store,
		MaterialID: m.ID,
		FromUnit:   "un",
		ToUnit:     "g",
		Factor:     dec("50"),
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	got, err := conv.Convert(store, dec("2"), "un", "g", m)
	if err != nil {
		t.Fatalf("Convert with rule: %v", err)
	}
	if !got.Equal(dec("100")) {
		t.Errorf("expected 100g for 2 eggs at 50g each, got %s", got)
	}
}

func TestConverterAppliesInverseRule(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, repos := newCatalog(db)
	store := testutil.TestStoreID

	m := testutil.SeedMaterial(t, db, store, "Ovo", "un")
	rule := &entity.UnitConversion{
		ID:         "rule-inv",
		StoreID:    store,
		MaterialID: m.ID,
		FromUnit:   "un",
		ToUnit:     "g",
		Factor:     dec("50"),
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	// só un→g está cadastrada; g→un resolve pelo fator inverso
	conv := NewConverter(repos.Conversion)
	got, err := conv.Convert(store, dec("150"), "g", "un", m)
	if err != nil {
		t.Fatalf("Convert g→un: %v", err)
	}
	if !got.Equal(dec("3")) {
		t.Errorf("expected 3 eggs for 150g at 50g each, got %s", got)
	}
}

func TestConverterUsesDensity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, repos := newCatalog(db)
	store := testutil.TestStoreID

	density := dec("0.92")
	m := testutil.SeedMaterial(t, db, store, "Azeite", "l")
	m.Density = &density
	if err := db.Save(m).Error; err != nil {
		t.Fatalf("set density: %v", err)
	}

	conv := NewConverter(repos.Conversion)
	got, err := conv.Convert(store, dec("1"), "l", "kg", m)
	if err != nil {
		t.Fatalf("Convert l→kg: %v", err)
	}
	if !got.Equal(dec("0.92")) {
		t.Errorf("expected 0.92kg for 1l at 0.92 g/ml, got %s", got)
	}
}
