package normalize

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

func TestNormalizeTaxRate(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{"18", 0.18},
		{"18%", 0.18},
		{"GST 12 %", 0.12},
		{0.05, 0.05},
		{"0.28", 0.28},
		{5, 0.05},
		{1, 1},
		{0, 0},
		{"", 0},
		{"exempt", 0},
		{nil, 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, NormalizeTaxRate(tc.in), 1e-12, "%v", tc.in)
	}
}

func TestLandedCost_Scenarios(t *testing.T) {
	rate, landed := LandedCost(100, "18")
	assert.Equal(t, 0.18, rate)
	assert.InDelta(t, 118.0, landed, 1e-9)

	rate, landed = LandedCost(50, 0.05)
	assert.Equal(t, 0.05, rate)
	assert.InDelta(t, 52.5, landed, 1e-9)
}

func TestTaxRateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("rates above 1 are percentages", prop.ForAll(
		func(x float64) bool {
			return NormalizeTaxRate(x) == x/100
		},
		gen.Float64Range(1.0001, 100),
	))

	properties.Property("rates up to 1 are fractions", prop.ForAll(
		func(x float64) bool {
			return NormalizeTaxRate(x) == x
		},
		gen.Float64Range(0, 1),
	))

	properties.Property("text input behaves like the number it spells", prop.ForAll(
		func(x float64) bool {
			s := strconv.FormatFloat(x, 'f', -1, 64)
			return NormalizeTaxRate(s) == NormalizeTaxRate(x)
		},
		gen.Float64Range(0, 100),
	))

	properties.Property("landed cost is unit cost times one plus rate", prop.ForAll(
		func(unitCost, raw float64) bool {
			rate, landed := LandedCost(unitCost, raw)
			return landed == unitCost*(1+NormalizeTaxRate(raw)) && rate == NormalizeTaxRate(raw) && landed >= 0
		},
		gen.Float64Range(0, 10000),
		gen.Float64Range(0, 40),
	))

	properties.TestingRun(t)
}

func TestPlaceholderIDsNeverSurvive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	placeholder := gen.OneConstOf("", " ", "nan", "NaN", "NAN", " nan ")

	properties.Property("blank or nan product ids are excluded", prop.ForAll(
		func(id string, name string) bool {
			c, report := New().Normalize(domain.RawDataset{
				Products: []domain.RawRecord{{"PRODUCT_ID": id, "PRODUCT_NAME": name}},
			})
			return len(c.Products) == 0 && report.Dropped[domain.KindProducts] == 1
		},
		placeholder,
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
