// Package unitconv converte quantidades entre unidades de medida.
//
// As unidades se dividem em três famílias: massa, volume e contagem.
// Conversão dentro da mesma família usa uma tabela fixa de fatores;
// conversão massa↔volume exige a densidade do material (g/ml).
package unitconv

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Family identifica a família de uma unidade.
type Family string

const (
	FamilyMass   Family = "mass"
	FamilyVolume Family = "volume"
	FamilyCount  Family = "count"
)

// Fatores para a unidade base de cada família (g, ml, un).
var factors = map[string]struct {
	family Family
	factor decimal.Decimal
}{
	"mg": {FamilyMass, decimal.RequireFromString("0.001")},
	"g":  {FamilyMass, decimal.NewFromInt(1)},
	"kg": {FamilyMass, decimal.NewFromInt(1000)},
	"t":  {FamilyMass, decimal.NewFromInt(1000000)},

	"ml": {FamilyVolume, decimal.NewFromInt(1)},
	"l":  {FamilyVolume, decimal.NewFromInt(1000)},

	"un": {FamilyCount, decimal.NewFromInt(1)},
	"dz": {FamilyCount, decimal.NewFromInt(12)},
}

// UnknownUnitError indica uma unidade fora da tabela de fatores.
type UnknownUnitError struct {
	Unit string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("unidade de medida desconhecida: %s", e.Unit)
}

// MissingDensityError indica conversão massa↔volume sem densidade.
type MissingDensityError struct {
	From string
	To   string
}

func (e *MissingDensityError) Error() string {
	return fmt.Sprintf("conversão %s→%s exige densidade (g/ml)", e.From, e.To)
}

// IncompatibleFamilyError indica conversão entre famílias sem ponte possível
// (contagem nunca converte para massa ou volume).
type IncompatibleFamilyError struct {
	From string
	To   string
}

func (e *IncompatibleFamilyError) Error() string {
	return fmt.Sprintf("unidades incompatíveis: %s→%s", e.From, e.To)
}

// UnitFamily retorna a família da unidade.
func UnitFamily(unit string) (Family, error) {
	f, ok := factors[unit]
	if !ok {
		return "", &UnknownUnitError{Unit: unit}
	}
	return f.family, nil
}

// IsKnown informa se a unidade existe na tabela.
func IsKnown(unit string) bool {
	_, ok := factors[unit]
	return ok
}

// Convert converte qty entre unidades da mesma família.
// Conversão de uma unidade para ela mesma devolve o valor inalterado.
func Convert(qty decimal.Decimal, from, to string) (decimal.Decimal, error) {
	return ConvertWithDensity(qty, from, to, nil)
}

// ConvertWithDensity converte qty entre unidades, usando density (g/ml)
// quando a conversão cruza massa e volume. density pode ser nil para
// conversões dentro da mesma família.
func ConvertWithDensity(qty decimal.Decimal, from, to string, density *decimal.Decimal) (decimal.Decimal, error) {
	if from == to {
		return qty, nil
	}
	src, ok := factors[from]
	if !ok {
		return decimal.Zero, &UnknownUnitError{Unit: from}
	}
	dst, ok := factors[to]
	if !ok {
		return decimal.Zero, &UnknownUnitError{Unit: to}
	}

	if src.family == dst.family {
		return qty.Mul(src.factor).Div(dst.factor), nil
	}

	// Massa↔volume passa pela densidade; qualquer outra combinação é inválida.
	switch {
	case src.family == FamilyMass && dst.family == FamilyVolume:
		if density == nil || density.IsZero() {
			return decimal.Zero, &MissingDensityError{From: from, To: to}
		}
		grams := qty.Mul(src.factor)
		return grams.Div(*density).Div(dst.factor), nil
	case src.family == FamilyVolume && dst.family == FamilyMass:
		if density == nil || density.IsZero() {
			return decimal.Zero, &MissingDensityError{From: from, To: to}
		}
		ml := qty.Mul(src.factor)
		return ml.Mul(*density).Div(dst.factor), nil
	default:
		return decimal.Zero, &IncompatibleFamilyError{From: from, To: to}
	}
}
