package sync

import (
	"sort"

	"github.com/shopspring/decimal"

	"sisbridge-backend/models"
)

// CreditAllocation is one slice of a credit note applied to an invoice.
type CreditAllocation struct {
	InvoiceID uint
	Amount    decimal.Decimal
}

// AllocationResult reports how a credit amount was spread. Remaining > 0 is
// not an error: excess credit stays unapplied and is reported.
type AllocationResult struct {
	Allocations    []CreditAllocation
	TotalAllocated decimal.Decimal
	Remaining      decimal.Decimal
}

// AllocateCredit spreads a credit-note amount over the customer's
// outstanding invoices, earliest due date first. No invoice ever receives
// more than its residual, and the total allocated never exceeds the credit.
// Pure: candidates are not mutated.
func AllocateCredit(credit decimal.Decimal, candidates []models.InvoiceDocument) AllocationResult {
	res := AllocationResult{
		TotalAllocated: decimal.Zero,
		Remaining:      credit,
	}
	if credit.Sign() <= 0 {
		return res
	}

	ordered := make([]models.InvoiceDocument, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := ordered[i].DueDate, ordered[j].DueDate
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})

	for _, inv := range ordered {
		if res.Remaining.Sign() <= 0 {
			break
		}
		residual := inv.Residual()
		if residual.Sign() <= 0 {
			continue
		}
		take := decimal.Min(res.Remaining, residual)
		res.Allocations = append(res.Allocations, CreditAllocation{InvoiceID: inv.ID, Amount: take})
		res.TotalAllocated = res.TotalAllocated.Add(take)
		res.Remaining = res.Remaining.Sub(take)
	}
	return res
}
