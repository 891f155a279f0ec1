package handler

import (
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/service"
	"github.com/gin-gonic/gin"
)

// ProductionHandler ciclo de vida das ordens de produção.
type ProductionHandler struct {
	svc *service.ProductionService
}

func NewProductionHandler(svc *service.ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

// Create POST /production-orders
func (h *ProductionHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "requisição inválida: "+err.Error())
		return
	}

	order, err := h.svc.Create(GetStoreID(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, order)
}

// Get GET /production-orders/:id
func (h *ProductionHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(GetStoreID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, order)
}

// List GET /production-orders?status=&product_id=&page=&page_size=
func (h *ProductionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(GetStoreID(c), repository.OrderListParams{
		Status:    c.Query("status"),
		ProductID: c.Query("product_id"),
		Page:      page,
		Size:      pageSize,
	})
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}

// Start POST /production-orders/:id/start
func (h *ProductionHandler) Start(c *gin.Context) {
	order, err := h.svc.Start(GetStoreID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, order)
}

// Finish POST /production-orders/:id/finish
func (h *ProductionHandler) Finish(c *gin.Context) {
	var req service.FinishOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "requisição inválida: "+err.Error())
		return
	}

	order, err := h.svc.Finish(c.Request.Context(), GetStoreID(c), c.Param("id"), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, order)
}

// Cancel POST /production-orders/:id/cancel
func (h *ProductionHandler) Cancel(c *gin.Context) {
	order, err := h.svc.Cancel(GetStoreID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, order)
}

// Delete DELETE /production-orders/:id
func (h *ProductionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(GetStoreID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"deleted": true})
}

// ListConsumptions GET /production-orders/:id/consumptions
func (h *ProductionHandler) ListConsumptions(c *gin.Context) {
	items, err := h.svc.ListConsumptions(GetStoreID(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": items})
}
