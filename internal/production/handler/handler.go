package handler

import (
	"errors"
	"strconv"

	"github.com/fnsdeividy/sales-pdv-backend/internal/production/service"
	"github.com/gin-gonic/gin"
)

// Handlers conjunto de handlers do motor de produção.
type Handlers struct {
	Catalog    *CatalogHandler
	Costing    *CostingHandler
	Production *ProductionHandler
}

func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Catalog:    NewCatalogHandler(svc.Catalog),
		Costing:    NewCostingHandler(svc.Costing),
		Production: NewProductionHandler(svc.Production),
	}
}

// Response envelope padrão da API.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse resposta de listagem paginada.
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination dados de paginação.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func NewPagination(page, pageSize int, total int64) *Pagination {
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return &Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}

// Success resposta de sucesso.
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created resposta de criação.
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error resposta de erro. Os dois primeiros dígitos do código viram o
// status HTTP.
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData erro carregando detalhe estruturado (faltas de estoque).
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BadRequest erro de parâmetro.
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized sem credencial válida.
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// NotFound recurso inexistente.
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict operação incompatível com o estado atual.
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError erro do servidor.
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// RespondError mapeia os erros tipados da camada de serviço para o
// envelope da API. Erros desconhecidos viram 500.
func RespondError(c *gin.Context, err error) {
	var (
		notFound     *service.NotFoundError
		noRecipe     *service.RecipeNotFoundError
		validation   *service.ValidationError
		inUse        *service.MaterialInUseError
		transition   *service.InvalidTransitionError
		insufficient *service.InsufficientStockError
		missing      *service.InsufficientMaterialsError
	)
	switch {
	case errors.As(err, &notFound):
		NotFound(c, notFound.Error())
	case errors.As(err, &noRecipe):
		NotFound(c, noRecipe.Error())
	case errors.Is(err, service.ErrNoCostInformation):
		NotFound(c, err.Error())
	case errors.As(err, &validation):
		BadRequest(c, validation.Error())
	case errors.As(err, &inUse):
		Conflict(c, inUse.Error())
	case errors.As(err, &transition):
		Conflict(c, transition.Error())
	case errors.As(err, &insufficient):
		ErrorWithData(c, 40900, insufficient.Error(), insufficient)
	case errors.As(err, &missing):
		ErrorWithData(c, 40900, missing.Error(), gin.H{"missing": missing.Missing})
	default:
		InternalError(c, err.Error())
	}
}

// GetStoreID loja autenticada, colocada no contexto pelo middleware JWT.
func GetStoreID(c *gin.Context) string {
	storeID, _ := c.Get("store_id")
	if id, ok := storeID.(string); ok {
		return id
	}
	return ""
}

// GetPagination parâmetros de paginação da query string.
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
