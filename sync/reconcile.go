package sync

import (
	"sort"

	"github.com/shopspring/decimal"

	"sisbridge-backend/models"
	"sisbridge-backend/utils"
)

// Reconcile computes the per-product net delta between an adjustment
// generation and its baseline: delta = current amount − baseline amount,
// summed per product. A product present on only one side contributes its
// whole amount, signed by which side it is missing from. Zero deltas (after
// cent rounding) are dropped. The result is a fresh, deterministic slice;
// the inputs are never mutated.
func Reconcile(baseline, current []models.ChargeLine) []LineDelta {
	type side struct {
		amount      decimal.Decimal
		refNumber   string
		description string
	}

	acc := make(map[int]*side)
	get := func(productID int) *side {
		s, ok := acc[productID]
		if !ok {
			s = &side{amount: decimal.Zero}
			acc[productID] = s
		}
		return s
	}

	for _, l := range current {
		s := get(l.ProductID)
		s.amount = s.amount.Add(l.Amount)
		s.refNumber = l.RefNumber
		s.description = l.ProductDesc
	}
	for _, l := range baseline {
		s := get(l.ProductID)
		s.amount = s.amount.Sub(l.Amount)
		if s.refNumber == "" {
			s.refNumber = l.RefNumber
		}
		if s.description == "" {
			s.description = l.ProductDesc
		}
	}

	deltas := make([]LineDelta, 0, len(acc))
	for productID, s := range acc {
		amount := utils.Round2(s.amount)
		if amount.IsZero() {
			continue
		}
		deltas = append(deltas, LineDelta{
			ProductID:   productID,
			RefNumber:   s.refNumber,
			Description: s.description,
			Amount:      amount,
		})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ProductID < deltas[j].ProductID })
	return deltas
}

// AdjustmentDirection picks the correction document kind for one generation.
// The upstream comparison is `prior >= current` into the credit-note branch;
// at exact equality every delta nets to zero and no document is emitted, so
// the branch choice there is a no-op.
func AdjustmentDirection(priorCumulative, currentCumulative decimal.Decimal) string {
	if priorCumulative.GreaterThanOrEqual(currentCumulative) {
		return models.DirectionCreditNote
	}
	return models.DirectionDebit
}
