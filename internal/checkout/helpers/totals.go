package helpers

import (
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

// Line is a resolved cart line priced from the live product row.
type Line struct {
	UnitPriceCents int64
	Quantity       int
	Currency       enums.Currency
}

// LineTotal returns unit price times quantity.
func (l Line) LineTotal() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// Totals is the price snapshot written onto an order.
type Totals struct {
	SubtotalCents int64
	DiscountCents int64
	ShippingCents int64
	TaxCents      int64
	TotalCents    int64
}

// SingleCurrency returns the currency shared by every line.
func SingleCurrency(lines []Line) (enums.Currency, error) {
	if len(lines) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	currency := lines[0].Currency
	for _, l := range lines[1:] {
		if l.Currency != currency {
			return "", pkgerrors.New(pkgerrors.CodeMixedCurrency, "cart items use more than one currency").
				WithDetails(map[string]any{"currencies": []enums.Currency{currency, l.Currency}})
		}
	}
	return currency, nil
}

// Subtotal sums line totals.
func Subtotal(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.LineTotal()
	}
	return sum
}

// ComputeTotals clamps the order total at zero.
func ComputeTotals(subtotal, discount, shipping, tax int64) Totals {
	total := subtotal - discount + shipping + tax
	if total < 0 {
		total = 0
	}
	return Totals{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		ShippingCents: shipping,
		TaxCents:      tax,
		TotalCents:    total,
	}
}
