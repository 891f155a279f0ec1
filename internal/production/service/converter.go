package service

import (
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/repository"
	"github.com/fnsdeividy/sales-pdv-backend/internal/unitconv"
	"github.com/shopspring/decimal"
)

// convertFn converte qty entre unidades no contexto de um material.
// As rotinas de alocação recebem a função em vez do repositório para
// poderem ser exercitadas sem banco.
type convertFn func(qty decimal.Decimal, from, to string, m *entity.Material) (decimal.Decimal, error)

// Converter resolve conversões de unidade com a precedência do catálogo:
// regra específica do material antes da tabela genérica, densidade do
// material para cruzar massa e volume.
type Converter struct {
	conversions *repository.ConversionRepository
}

func NewConverter(conversions *repository.ConversionRepository) *Converter {
	return &Converter{conversions: conversions}
}

// Convert converte qty de from para to. Quando m é informado, uma regra
// de conversão cadastrada para o material tem precedência sobre a tabela
// genérica, e a densidade do material cobre conversões massa↔volume.
func (c *Converter) Convert(storeID string, qty decimal.Decimal, from, to string, m *entity.Material) (decimal.Decimal, error) {
	if from == to {
		return qty, nil
	}
	if m != nil {
		rule, err := c.conversions.Find(storeID, m.ID, from, to)
		if err != nil {
			return decimal.Zero, err
		}
		if rule != nil {
			return qty.Mul(rule.Factor), nil
		}
		// regra cadastrada no sentido oposto vale pelo fator inverso
		reverse, err := c.conversions.Find(storeID, m.ID, to, from)
		if err != nil {
			return decimal.Zero, err
		}
		if reverse != nil {
			return qty.Div(reverse.Factor), nil
		}
	}
	var density *decimal.Decimal
	if m != nil {
		density = m.Density
	}
	return unitconv.ConvertWithDensity(qty, from, to, density)
}

// fn devolve a conversão como closure presa à loja, no formato que as
// rotinas de alocação esperam.
func (c *Converter) fn(storeID string) convertFn {
	return func(qty decimal.Decimal, from, to string, m *entity.Material) (decimal.Decimal, error) {
		return c.Convert(storeID, qty, from, to, m)
	}
}
