package handler

import (
	"strconv"

	"github.com/fnsdeividy/sales-pdv-backend/internal/production/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CostingHandler simulação de consumo, preço sugerido e histórico de
// custo.
type CostingHandler struct {
	svc *service.CostingService
}

func NewCostingHandler(svc *service.CostingService) *CostingHandler {
	return &CostingHandler{svc: svc}
}

// SimulateConsumption GET /products/:id/consumption?qty=&unit=
// Escala a ficha técnica com perda aplicada, sem tocar no estoque.
func (h *CostingHandler) SimulateConsumption(c *gin.Context) {
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

	consumptions, err := h.svc.CalculateMaterialConsumptions(GetStoreID(c), c.Param("id"), qty, unit)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": consumptions})
}

// SuggestedPrice POST /products/:id/suggested-price
func (h *CostingHandler) SuggestedPrice(c *gin.Context) {
	var req service.SuggestedPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "requisição inválida: "+err.Error())
		return
	}

	price, err := h.svc.GetSuggestedPrice(c.Request.Context(), GetStoreID(c), c.Param("id"), req)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, price)
}

// CostHistory GET /products/:id/cost-history?limit=
func (h *CostingHandler) CostHistory(c *gin.Context) {
	limit := 20
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	history, err := h.svc.GetProductCostHistory(GetStoreID(c), c.Param("id"), limit)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": history})
}
