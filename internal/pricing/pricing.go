// Package pricing computes the derived money fields of quotes.
// Every function is pure; callers persist the results.
package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"officina/internal/model"
)

// MinQuantity is the smallest part quantity a quote line can carry
const MinQuantity = 1

// moneyPlaces is the number of decimals kept on rounded amounts
const moneyPlaces = 2

var ErrInvalidInput = errors.New("invalid input")

var hundred = decimal.NewFromInt(100)

// Part is the priced view of a spare part
type Part struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Item is the priced view of a quote item
type Item struct {
	LaborPrice decimal.Decimal
	LaborHours decimal.Decimal
	Parts      []Part
}

// Totals are the quote-level figures.
// Item labor is not part of Subtotal, only ExtraLabor is.
type Totals struct {
	PartsTotal decimal.Decimal
	ExtraLabor decimal.Decimal
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	Total      decimal.Decimal
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	return q
}

// PartFinalPrice returns round(unitPrice*quantity, 2).
// A negative price counts as 0 and a quantity below MinQuantity as MinQuantity.
func PartFinalPrice(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	unit := nonNegative(unitPrice)
	qty := decimal.NewFromInt(int64(clampQuantity(quantity)))
	return unit.Mul(qty).Round(moneyPlaces)
}

// PartsTotal sums the final prices of parts
func PartsTotal(parts []Part) decimal.Decimal {
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(PartFinalPrice(p.UnitPrice, p.Quantity))
	}
	return total
}

// ItemTotal returns laborPrice*laborHours plus the item's parts
func ItemTotal(item Item) decimal.Decimal {
	labor := nonNegative(item.LaborPrice).Mul(nonNegative(item.LaborHours))
	return labor.Add(PartsTotal(item.Parts))
}

// QuoteTotals computes the summary of a quote:
//
//	subtotal = parts of every item + extraLaborRate*extraLaborHours
//	tax      = round(subtotal*taxRate/100, 2)
//	total    = subtotal + tax
//
// taxRate is used as given, out of range values included.
func QuoteTotals(items []Item, extraLaborRate, extraLaborHours, taxRate decimal.Decimal) Totals {
	partsTotal := decimal.Zero
	for _, item := range items {
		partsTotal = partsTotal.Add(PartsTotal(item.Parts))
	}
	extra := nonNegative(extraLaborRate).Mul(nonNegative(extraLaborHours))
	subtotal := partsTotal.Add(extra)
	tax := subtotal.Mul(taxRate).Div(hundred).Round(moneyPlaces)

	return Totals{
		PartsTotal: partsTotal,
		ExtraLabor: extra,
		Subtotal:   subtotal,
		TaxAmount:  tax,
		Total:      subtotal.Add(tax),
	}
}

// ItemFromModel converts a stored quote item into its priced view
func ItemFromModel(qi model.QuoteItem) Item {
	item := Item{LaborPrice: qi.LaborPrice, LaborHours: qi.LaborHours}
	for _, p := range qi.Parts {
		item.Parts = append(item.Parts, Part{UnitPrice: p.UnitPrice, Quantity: p.Quantity})
	}
	return item
}

// stored clamps a user supplied amount and rounds it to the scale of the money columns
func stored(d decimal.Decimal) decimal.Decimal {
	return nonNegative(d).Round(moneyPlaces)
}

// ApplyToQuote normalises the inputs of a quote tree and writes every derived field:
// part final prices, item totals, subtotal, tax and total.
// Inputs are rounded to two decimals first so that the figures still agree once the
// database has stored them. Subtotal is stored rounded and Total is always Subtotal + TaxAmount.
func ApplyToQuote(q *model.Quote) Totals {
	items := make([]Item, 0, len(q.Items))
	for i := range q.Items {
		qi := &q.Items[i]
		qi.LaborPrice = stored(qi.LaborPrice)
		qi.LaborHours = stored(qi.LaborHours)
		for j := range qi.Parts {
			p := &qi.Parts[j]
			p.UnitPrice = stored(p.UnitPrice)
			p.Quantity = clampQuantity(p.Quantity)
			p.FinalPrice = PartFinalPrice(p.UnitPrice, p.Quantity)
		}
		item := ItemFromModel(*qi)
		qi.TotalPrice = ItemTotal(item).Round(moneyPlaces)
		items = append(items, item)
	}

	q.LaborPrice = stored(q.LaborPrice)
	q.LaborHours = stored(q.LaborHours)
	q.TaxRate = q.TaxRate.Round(moneyPlaces)
	totals := QuoteTotals(items, q.LaborPrice, q.LaborHours, q.TaxRate)
	totals.Subtotal = totals.Subtotal.Round(moneyPlaces)
	totals.Total = totals.Subtotal.Add(totals.TaxAmount)

	q.Subtotal = totals.Subtotal
	q.TaxAmount = totals.TaxAmount
	q.Total = totals.Total
	return totals
}

func normaliseNumber(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

// ParseAmount reads a price or hour count typed in a form.
// Blank, non-numeric and negative input reads as 0; a decimal comma is accepted.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(normaliseNumber(s))
	if err != nil {
		return decimal.Zero
	}
	return nonNegative(d)
}

// ParseAmountStrict is ParseAmount for callers that want to reject bad input
func ParseAmountStrict(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(normaliseNumber(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidInput, s)
	}
	return d, nil
}

// ParseQuantity reads a part quantity typed in a form, falling back to MinQuantity
func ParseQuantity(s string) int {
	q, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return MinQuantity
	}
	return clampQuantity(q)
}
