package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNoCostInformation indica que nem o cálculo dinâmico nem o cache de
// custo têm informação para o produto.
var ErrNoCostInformation = errors.New("produto sem informação de custo")

// NotFoundError entidade inexistente ou de outra loja.
type NotFoundError struct {
	Entity string // "material" | "produto" | "lote" | "ordem"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s não encontrado: %s", e.Entity, e.ID)
}

// RecipeNotFoundError produto sem ficha técnica. Não é erro transitório:
// produtos sem receita são tratados como não manufaturados.
type RecipeNotFoundError struct {
	ProductID string
}

func (e *RecipeNotFoundError) Error() string {
	return fmt.Sprintf("produto sem ficha técnica: %s", e.ProductID)
}

// MaterialInUseError exclusão bloqueada por integridade referencial.
type MaterialInUseError struct {
	MaterialID    string
	BomReferences int64
	ActiveBatches int64
}

func (e *MaterialInUseError) Error() string {
	return fmt.Sprintf("material %s em uso: %d fichas técnicas, %d lotes ativos",
		e.MaterialID, e.BomReferences, e.ActiveBatches)
}

// InsufficientStockError falta dura de estoque na alocação (finalização).
type InsufficientStockError struct {
	MaterialID   string
	MaterialName string
	Required     decimal.Decimal
	Available    decimal.Decimal
	Shortfall    decimal.Decimal
	Unit         string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("estoque insuficiente de %s: necessário %s %s, disponível %s %s (faltam %s %s)",
		e.MaterialName, e.Required, e.Unit, e.Available, e.Unit, e.Shortfall, e.Unit)
}

// MaterialShortage material sem nenhum estoque disponível no início da produção.
type MaterialShortage struct {
	MaterialID   string          `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Required     decimal.Decimal `json:"required"`
	Unit         string          `json:"unit"`
}

// InsufficientMaterialsError falta branda na checagem de disponibilidade
// do início: algum material necessário está totalmente indisponível.
type InsufficientMaterialsError struct {
	Missing []MaterialShortage
}

func (e *InsufficientMaterialsError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		names = append(names, m.MaterialName)
	}
	return fmt.Sprintf("materiais indisponíveis para iniciar a produção: %v", names)
}

// InvalidTransitionError transição de status ilegal na ordem de produção.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transição de status inválida: %s → %s", e.From, e.To)
}

// ValidationError entrada inválida detectada antes de tocar o banco.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}
