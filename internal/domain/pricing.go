package domain

import (
	"errors"
	"math"
)

var ErrInsufficientPayment = errors.New("paid amount is less than total amount")

// LineTotal is qty*unitPrice less the line discount, floored at zero.
func LineTotal(qty int, unitPrice int64, discount int64) int64 {
	total := int64(qty)*unitPrice - discount
	if total < 0 {
		return 0
	}
	return total
}

type SaleTotals struct {
	SubTotal        int64
	DiscountAmount  int64
	DiscountPercent float64
	TotalAmount     int64
	PaidAmount      int64
	ChangeAmount    int64
}

// ComputeSaleTotals prices a sale from its already-totalled lines. A positive
// discountPercent replaces discountAmount. Cash must cover the total; other
// methods settle the exact total when paid is zero.
func ComputeSaleTotals(items []SaleItem, discountAmount int64, discountPercent float64, paymentMethod string, paid int64) (SaleTotals, error) {
	totals := SaleTotals{DiscountPercent: discountPercent}
	for _, item := range items {
		totals.SubTotal += item.TotalPrice
	}

	discount := discountAmount
	if discountPercent > 0 {
		discount = int64(math.Round(float64(totals.SubTotal) * discountPercent / 100))
	}
	if discount < 0 {
		discount = 0
	}
	if discount > totals.SubTotal {
		discount = totals.SubTotal
	}
	totals.DiscountAmount = discount
	totals.TotalAmount = totals.SubTotal - discount

	if paymentMethod != PaymentCash && paid == 0 {
		paid = totals.TotalAmount
	}
	if paid < totals.TotalAmount {
		return SaleTotals{}, ErrInsufficientPayment
	}
	totals.PaidAmount = paid
	totals.ChangeAmount = paid - totals.TotalAmount
	return totals, nil
}
