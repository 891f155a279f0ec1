package unitconv

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvertIdentity(t *testing.T) {
	units := []string{"mg", "g", "kg", "t", "ml", "l", "un", "dz"}
	qty := decimal.RequireFromString("123.4567")
	for _, u := range units {
		got, err := Convert(qty, u, u)
		if err != nil {
			t.Fatalf("Convert(%s→%s): %v", u, u, err)
		}
		if !got.Equal(qty) {
			t.Errorf("Convert(%s→%s) = %s, esperado %s", u, u, got, qty)
		}
	}
}

func TestConvertSameFamily(t *testing.T) {
	cases := []struct {
		qty, want string
		from, to  string
	}{
		{"1", "1000", "kg", "g"},
		{"2500", "2.5", "g", "kg"},
		{"1", "1000", "l", "ml"},
		{"330", "0.33", "ml", "l"},
		{"3", "36", "dz", "un"},
		{"0.5", "500000", "t", "g"},
	}
	for _, c := range cases {
		got, err := Convert(decimal.RequireFromString(c.qty), c.from, c.to)
		if err != nil {
			t.Fatalf("Convert(%s %s→%s): %v", c.qty, c.from, c.to, err)
		}
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("Convert(%s %s→%s) = %s, esperado %s", c.qty, c.from, c.to, got, c.want)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	pairs := [][2]string{{"kg", "g"}, {"l", "ml"}, {"dz", "un"}, {"t", "mg"}}
	qty := decimal.RequireFromString("7.25")
	tol := decimal.RequireFromString("0.0000001")
	for _, p := range pairs {
		there, err := Convert(qty, p[0], p[1])
		if err != nil {
			t.Fatalf("Convert(%s→%s): %v", p[0], p[1], err)
		}
		back, err := Convert(there, p[1], p[0])
		if err != nil {
			t.Fatalf("Convert(%s→%s): %v", p[1], p[0], err)
		}
		if back.Sub(qty).Abs().GreaterThan(tol) {
			t.Errorf("ida e volta %s↔%s: %s, esperado %s", p[0], p[1], back, qty)
		}
	}
}

func TestConvertWithDensity(t *testing.T) {
	// Óleo: densidade 0.92 g/ml. 1 l → 920 g → 0.92 kg.
	density := decimal.RequireFromString("0.92")
	got, err := ConvertWithDensity(decimal.NewFromInt(1), "l", "kg", &density)
	if err != nil {
		t.Fatalf("ConvertWithDensity: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("0.92")) {
		t.Errorf("1 l → kg = %s, esperado 0.92", got)
	}

	// Caminho inverso: 460 g → 500 ml.
	got, err = ConvertWithDensity(decimal.NewFromInt(460), "g", "ml", &density)
	if err != nil {
		t.Fatalf("ConvertWithDensity: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("460 g → ml = %s, esperado 500", got)
	}
}

func TestConvertMissingDensity(t *testing.T) {
	_, err := Convert(decimal.NewFromInt(1), "kg", "l")
	var mde *MissingDensityError
	if !errors.As(err, &mde) {
		t.Fatalf("esperado MissingDensityError, veio %v", err)
	}
	if mde.From != "kg" || mde.To != "l" {
		t.Errorf("MissingDensityError com unidades erradas: %+v", mde)
	}
}

func TestConvertIncompatibleFamilies(t *testing.T) {
	density := decimal.NewFromInt(1)
	_, err := ConvertWithDensity(decimal.NewFromInt(10), "un", "kg", &density)
	var ife *IncompatibleFamilyError
	if !errors.As(err, &ife) {
		t.Fatalf("esperado IncompatibleFamilyError, veio %v", err)
	}
}

func TestConvertUnknownUnit(t *testing.T) {
	_, err := Convert(decimal.NewFromInt(1), "arroba", "kg")
	var uue *UnknownUnitError
	if !errors.As(err, &uue) {
		t.Fatalf("esperado UnknownUnitError, veio %v", err)
	}
}
