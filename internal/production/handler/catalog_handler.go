package handler

import (
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CatalogHandler insumos, lotes, fichas técnicas e regras de conversão.
type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// CreateMaterial POST /materials
func (h *CatalogHandler) CreateMaterial(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "requisição inválida: "+err.Error())
		return
	}

	m, err := h.svc.CreateMaterial(GetStoreID(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, m)
}

// GetMaterial GET /materials/:id
func (h *CatalogHandler) GetMaterial(c *gin.Context) {
	m, err := h.svc.GetMaterial(GetStoreID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, m)
}

// ListMaterials GET /materials?keyword=&page=&page_size=
func (h *CatalogHandler) ListMaterials(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListMaterials(GetStoreID(c), repository.MaterialListParams{
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    pageSize,
	})
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// UpdateMaterial PUT /materials/:id
func (h *CatalogHandler) UpdateMaterial(c *gin.Context) {
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "requisição inválida: "+err.Error())
		return
	}

	m, err := h.svc.UpdateMaterial(GetStoreID(c), c.Param("id"), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, m)
}

// DeleteMaterial DELETE /materials/:id
func (h *CatalogHandler) DeleteMaterial(c *gin.Context) {
	if err := h.svc.DeleteMaterial(GetStoreID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"deleted": true})
}

// ListLowStock GET /materials/low-stock
func (h *CatalogHandler) ListLowStock(c *gin.Context) {
	items, err := h.svc.ListLowStock(GetStoreID(c))
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, gin.H{"items": items})
}

// CheckAvailability GET /materials/:id/availability?qty=&unit=
func (h *CatalogHandler) CheckAvailability(c *gin.Context) {
	qty, err := decimal.NewFromString(c.Query("qty"))
	if err != nil {
		BadRequest(c, "parâmetro qty inválido")
		return
	}
	unit := c.Query("unit")
	if unit == "" {
		BadRequest(c, "parâmetro unit é obrigatório")
		return
	}

	result, err := h.svc.CheckAvailability(GetStoreID(c), c.Param("id"), qty, unit)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, result)
}

// ReceiveBatch POST /batches
func (h *CatalogHandler) ReceiveBatch(c *gin.Context) {
	var req service.ReceiveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "requisição inválida: "+err.Error())
		return
	}

	b, err := h.svc.ReceiveBatch(GetStoreID(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, b)
}

// ListBatches GET /batches?material_id=&status=&page=&page_size=
func (h *CatalogHandler) ListBatches(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListBatches(GetStoreID(c), repository.BatchListParams{
		MaterialID: c.Query("material_id"),
		Status:     c.Query("status"),
		Page:       page,
		Size:       pageSize,
	})
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// AddBomLine POST /products/:id/bom
func (h *CatalogHandler) AddBomLine(c *gin.Context) {
	var req service.BomLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "requisição inválida: "+err.Error())
		return
	}

	line, err := h.svc.AddBomLine(GetStoreID(c), c.Param("id"), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, line)
}

// GetRecipe GET /products/:id/bom
func (h *CatalogHandler) GetRecipe(c *gin.Context) {
	lines, err := h.svc.GetRecipe(GetStoreID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": lines})
}

// DeleteBomLine DELETE /bom/:id
func (h *CatalogHandler) DeleteBomLine(c *gin.Context) {
	if err := h.svc.DeleteBomLine(GetStoreID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"deleted": true})
}

// ScaleRecipe GET /products/:id/bom/scale?qty=&unit=
func (h *CatalogHandler) ScaleRecipe(c *gin.Context) {
	qty, err := decimal.NewFromString(c.Query("qty"))
	if err != nil {
		BadRequest(c, "parâmetro qty inválido")
		return
	}
	unit := c.Query("unit")
	if unit == "" {
		BadRequest(c, "parâmetro unit é obrigatório")
		return
	}

	scaled, err := h.svc.ScaleRecipe(GetStoreID(c), c.Param("id"), qty, unit)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, scaled)
}

// AddConversionRule POST /conversions
func (h *CatalogHandler) AddConversionRule(c *gin.Context) {
	var req service.ConversionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "requisição inválida: "+err.Error())
		return
	}

	rule, err := h.svc.AddConversionRule(GetStoreID(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, rule)
}

// ListConversionRules GET /materials/:id/conversions
func (h *CatalogHandler) ListConversionRules(c *gin.Context) {
	rules, err := h.svc.ListConversionRules(GetStoreID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, rules)
}

// DeleteConversionRule DELETE /conversions/:id
func (h *CatalogHandler) DeleteConversionRule(c *gin.Context) {
	if err := h.svc.DeleteConversionRule(GetStoreID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"deleted": true})
}
