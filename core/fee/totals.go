package fee

import (
	"github.com/shopspring/decimal"
)

type InvoiceTotals struct {
	TotalPayable decimal.Decimal
	TotalPaid    decimal.Decimal
	Balance      decimal.Decimal
	Status       InvoiceStatus
}

// Totals derives an invoice's figures:
//   totalPayable = sum(snapshot) + lateFee - discount - scholarship
//   balance      = totalPayable - totalPaid
// Status is Paid once balance <= 0, PartiallyPaid while 0 < totalPaid < totalPayable, else Unpaid.
func Totals(snapshot []FeeItem, adj Adjustments, payments []Payment) InvoiceTotals {
	payable := SumFees(snapshot).Add(adj.LateFee).Sub(adj.Discount).Sub(adj.Scholarship)

	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.AmountPaid)
	}
	balance := payable.Sub(paid)

	var status InvoiceStatus
	switch {
	case balance.Sign() <= 0:
		status = Paid
	case paid.Sign() > 0 && paid.LessThan(payable):
		status = PartiallyPaid
	default:
		status = Unpaid
	}

	return InvoiceTotals{
		TotalPayable: payable,
		TotalPaid:    paid,
		Balance:      balance,
		Status:       status,
	}
}
