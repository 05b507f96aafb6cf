package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"officina/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestPartFinalPrice(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		quantity int
		want     string
	}{
		{"simple", "20", 2, "40"},
		{"cents", "12.35", 3, "37.05"},
		{"rounds half away from zero", "0.125", 1, "0.13"},
		{"rounds down", "3.333", 3, "10"},
		{"zero price", "0", 5, "0"},
		{"negative price clamps", "-10", 2, "0"},
		{"zero quantity clamps", "7.50", 0, "7.50"},
		{"negative quantity clamps", "7.50", -3, "7.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, PartFinalPrice(d(tt.unit), tt.quantity))
		})
	}
}

func TestPartFinalPriceMatchesRoundedProduct(t *testing.T) {
	for _, unit := range []string{"0.01", "0.333", "19.99", "45.555", "1234.5678"} {
		for q := 1; q <= 12; q++ {
			want := d(unit).Mul(decimal.NewFromInt(int64(q))).Round(2)
			assertDecimal(t, want.String(), PartFinalPrice(d(unit), q))
		}
	}
}

func TestItemTotal(t *testing.T) {
	item := Item{
		LaborPrice: d("45"),
		LaborHours: d("1"),
		Parts:      []Part{{UnitPrice: d("20"), Quantity: 2}},
	}
	assertDecimal(t, "85", ItemTotal(item))

	t.Run("negative hours clamp", func(t *testing.T) {
		item := Item{LaborPrice: d("45"), LaborHours: d("-2"), Parts: []Part{{UnitPrice: d("10"), Quantity: 1}}}
		assertDecimal(t, "10", ItemTotal(item))
	})

	t.Run("fractional hours", func(t *testing.T) {
		item := Item{LaborPrice: d("40"), LaborHours: d("1.25")}
		assertDecimal(t, "50", ItemTotal(item))
	})
}

func TestQuoteTotals(t *testing.T) {
	items := []Item{{
		LaborPrice: d("45"),
		LaborHours: d("1"),
		Parts:      []Part{{UnitPrice: d("20"), Quantity: 2}},
	}}

	totals := QuoteTotals(items, d("45"), d("0"), d("22"))

	// item labor stays out of the quote subtotal
	assertDecimal(t, "40", totals.PartsTotal)
	assertDecimal(t, "0", totals.ExtraLabor)
	assertDecimal(t, "40", totals.Subtotal)
	assertDecimal(t, "8.80", totals.TaxAmount)
	assertDecimal(t, "48.80", totals.Total)

	t.Run("extra labor", func(t *testing.T) {
		totals := QuoteTotals(items, d("45"), d("2"), d("22"))
		assertDecimal(t, "90", totals.ExtraLabor)
		assertDecimal(t, "130", totals.Subtotal)
		assertDecimal(t, "28.60", totals.TaxAmount)
		assertDecimal(t, "158.60", totals.Total)
	})

	t.Run("tax rate out of range is used as given", func(t *testing.T) {
		totals := QuoteTotals(items, d("0"), d("0"), d("150"))
		assertDecimal(t, "60", totals.TaxAmount)
	})

	t.Run("no items", func(t *testing.T) {
		totals := QuoteTotals(nil, d("0"), d("0"), d("22"))
		assertDecimal(t, "0", totals.Total)
	})
}

func TestQuoteTotalsIdempotent(t *testing.T) {
	items := []Item{
		{LaborPrice: d("38.5"), LaborHours: d("0.75"), Parts: []Part{{UnitPrice: d("12.49"), Quantity: 3}, {UnitPrice: d("7.333"), Quantity: 1}}},
		{Parts: []Part{{UnitPrice: d("99.99"), Quantity: 4}}},
	}
	first := QuoteTotals(items, d("42"), d("1.5"), d("22"))
	second := QuoteTotals(items, d("42"), d("1.5"), d("22"))
	assert.True(t, first.PartsTotal.Equal(second.PartsTotal))
	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.TaxAmount.Equal(second.TaxAmount))
	assert.Equal(t, first.Total.String(), second.Total.String())
}

func TestQuoteTotalsMonotonic(t *testing.T) {
	base := func(qty int, hours string) decimal.Decimal {
		items := []Item{{Parts: []Part{{UnitPrice: d("13.37"), Quantity: qty}}}}
		return QuoteTotals(items, d("45"), d(hours), d("22")).Total
	}

	prev := base(1, "0")
	for q := 2; q <= 10; q++ {
		next := base(q, "0")
		assert.True(t, next.GreaterThanOrEqual(prev), "quantity %d decreased total", q)
		prev = next
	}

	prev = base(1, "0")
	for _, h := range []string{"0.25", "0.5", "1", "2.75"} {
		next := base(1, h)
		assert.True(t, next.GreaterThanOrEqual(prev), "hours %s decreased total", h)
		prev = next
	}
}

func TestApplyToQuote(t *testing.T) {
	q := &model.Quote{
		LaborPrice: d("45"),
		LaborHours: d("0"),
		TaxRate:    d("22"),
		Items: []model.QuoteItem{{
			ServiceName: "Tagliando",
			LaborPrice:  d("45"),
			LaborHours:  d("1"),
			Parts: []model.SparePart{
				{Name: "Filtro olio", UnitPrice: d("20"), Quantity: 2},
				{Name: "Guarnizione", UnitPrice: d("-4"), Quantity: 0},
			},
		}},
	}

	totals := ApplyToQuote(q)

	require.Len(t, q.Items, 1)
	assertDecimal(t, "40", q.Items[0].Parts[0].FinalPrice)
	assert.Equal(t, 1, q.Items[0].Parts[1].Quantity)
	assertDecimal(t, "0", q.Items[0].Parts[1].FinalPrice)
	assertDecimal(t, "85", q.Items[0].TotalPrice)
	assertDecimal(t, "40", q.Subtotal)
	assertDecimal(t, "8.80", q.TaxAmount)
	assertDecimal(t, "48.80", q.Total)
	assert.True(t, totals.Total.Equal(q.Total))
}

func TestApplyToQuoteRoundsToStoredScale(t *testing.T) {
	q := &model.Quote{
		LaborPrice: d("33.335"),
		LaborHours: d("0.333"),
		TaxRate:    d("22"),
		Items: []model.QuoteItem{{
			LaborPrice: d("40.005"),
			LaborHours: d("1.255"),
			Parts:      []model.SparePart{{Name: "Fusibile", UnitPrice: d("0.125"), Quantity: 3}},
		}},
	}

	totals := ApplyToQuote(q)

	part := q.Items[0].Parts[0]
	assertDecimal(t, "0.13", part.UnitPrice)
	assertDecimal(t, "0.39", part.FinalPrice)
	assert.True(t, part.FinalPrice.Equal(part.UnitPrice.Mul(d("3")).Round(2)))

	assertDecimal(t, "40.01", q.Items[0].LaborPrice)
	assertDecimal(t, "1.26", q.Items[0].LaborHours)
	assertDecimal(t, "50.80", q.Items[0].TotalPrice) // 40.01*1.26 = 50.4126 + 0.39

	assertDecimal(t, "33.34", q.LaborPrice)
	assertDecimal(t, "0.33", q.LaborHours)
	// parts 0.39 + extra labor 11.0022
	assertDecimal(t, "11.39", q.Subtotal)
	assertDecimal(t, "2.51", q.TaxAmount)
	assertDecimal(t, "13.90", q.Total)
	assert.True(t, q.Total.Equal(q.Subtotal.Add(q.TaxAmount)))
	assert.True(t, totals.Total.Equal(q.Total))
}

func TestParseInput(t *testing.T) {
	assertDecimal(t, "12.5", ParseAmount("12.5"))
	assertDecimal(t, "12.5", ParseAmount(" 12,5 "))
	assertDecimal(t, "0", ParseAmount(""))
	assertDecimal(t, "0", ParseAmount("abc"))
	assertDecimal(t, "0", ParseAmount("-3"))

	assert.Equal(t, 3, ParseQuantity("3"))
	assert.Equal(t, MinQuantity, ParseQuantity(""))
	assert.Equal(t, MinQuantity, ParseQuantity("0"))
	assert.Equal(t, MinQuantity, ParseQuantity("x"))

	v, err := ParseAmountStrict("9,99")
	require.NoError(t, err)
	assertDecimal(t, "9.99", v)
	_, err = ParseAmountStrict("")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ParseAmountStrict("-1")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
