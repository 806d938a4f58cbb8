package sync

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sisbridge-backend/models"
	"sisbridge-backend/utils"
)

// defaultFirstPaymentRemark mirrors the upstream schedule convention when the
// feed gives no slot remark.
const defaultFirstPaymentRemark = "First Payment"

// PlanInstallments splits a charge into its payment-term installments. Only
// unadjusted (generation 0), unvoided, not-yet-synced lines feed the plan.
// A pay-term count outside 1..4 falls back to a single 100% first-payment
// installment. The last installment's price per line is the remainder of the
// unit price after the rounded prior slices, so a line's installments always
// sum to its unit price exactly, whatever the percentages round to.
func PlanInstallments(lines []models.ChargeLine) []Installment {
	var src []models.ChargeLine
	for _, l := range lines {
		if l.AdjustmentDetailID == 0 && l.AdjustmentSeq == 0 && !l.Voided && !l.Synced {
			src = append(src, l)
		}
	}
	if len(src) == 0 {
		return nil
	}

	head := src[0]
	terms := head.PayTermCount
	fallback := terms < 1 || terms > 4
	if fallback {
		terms = 1
	}

	payIDs := parsePayInstallmentIDs(head.PayInstallmentIDs)

	// Per-line running total of the already-sliced amount, so the final slot
	// can absorb rounding drift.
	sliced := make([]decimal.Decimal, len(src))

	out := make([]Installment, 0, terms)
	for i := 1; i <= terms; i++ {
		pct := head.DuePercent(i)
		if fallback {
			pct = 100
		}
		inst := Installment{
			Sequence:         i,
			Percentage:       pct,
			DueDate:          head.DueDate(i),
			IsFirstPayment:   i == 1,
			Remark:           slotRemark(head, i),
			PayInstallmentID: slotPayID(payIDs, i),
			Lines:            make([]InstallmentLine, 0, len(src)),
		}
		for j, l := range src {
			price := utils.Percent(l.UnitPrice, pct)
			if i == terms {
				price = utils.Remainder(l.UnitPrice, sliced[j])
			}
			sliced[j] = sliced[j].Add(price)
			inst.Lines = append(inst.Lines, InstallmentLine{
				ProductID:   l.ProductID,
				Description: l.ProductDesc,
				Quantity:    l.Quantity,
				PriceUnit:   price,
			})
		}
		out = append(out, inst)
	}
	return out
}

func slotRemark(l models.ChargeLine, i int) string {
	var r string
	switch i {
	case 1:
		r = l.Remark1
	case 2:
		r = l.Remark2
	case 3:
		r = l.Remark3
	case 4:
		r = l.Remark4
	}
	if r == "" && i == 1 {
		r = defaultFirstPaymentRemark
	}
	return r
}

// parsePayInstallmentIDs unpacks the upstream "(id1,id2,...)" tuple.
func parsePayInstallmentIDs(raw string) []string {
	raw = strings.Trim(strings.TrimSpace(raw), "()")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// slotPayID returns the upstream installment id for slot i, or a stable
// surrogate when the feed carried none, so the (refNumber, payInstallmentID)
// idempotency key still discriminates installments.
func slotPayID(ids []string, i int) string {
	if i-1 < len(ids) && ids[i-1] != "" && !strings.EqualFold(ids[i-1], "None") {
		return ids[i-1]
	}
	return fmt.Sprintf("slot-%d", i)
}
