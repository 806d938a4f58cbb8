package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sisbridge-backend/models"
	"sisbridge-backend/utils"
)

func outstandingDoc(id uint, due *time.Time, total, reconciled string) models.InvoiceDocument {
	return models.InvoiceDocument{
		ID:               id,
		DueDate:          due,
		Direction:        models.DirectionDebit,
		State:            models.StatePosted,
		AmountTotal:      utils.MustDecimal(total),
		AmountReconciled: utils.MustDecimal(reconciled),
	}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAllocateCreditOldestDueFirst(t *testing.T) {
	candidates := []models.InvoiceDocument{
		outstandingDoc(2, datePtr(2025, time.August, 15), "400.00", "0"),
		outstandingDoc(1, datePtr(2025, time.June, 15), "600.00", "0"),
	}

	res := AllocateCredit(utils.MustDecimal("700.00"), candidates)
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, uint(1), res.Allocations[0].InvoiceID)
	assert.Equal(t, "600", res.Allocations[0].Amount.String())
	assert.Equal(t, uint(2), res.Allocations[1].InvoiceID)
	assert.Equal(t, "100", res.Allocations[1].Amount.String())
	assert.Equal(t, "700", res.TotalAllocated.String())
	assert.True(t, res.Remaining.IsZero())
}

func TestAllocateCreditRespectsResiduals(t *testing.T) {
	candidates := []models.InvoiceDocument{
		outstandingDoc(1, datePtr(2025, time.June, 15), "600.00", "600.00"),
		outstandingDoc(2, datePtr(2025, time.August, 15), "400.00", "150.00"),
	}

	res := AllocateCredit(utils.MustDecimal("500.00"), candidates)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, uint(2), res.Allocations[0].InvoiceID)
	assert.Equal(t, "250", res.Allocations[0].Amount.String())
	assert.Equal(t, "250", res.Remaining.String())
}

func TestAllocateCreditExcessLeftUnapplied(t *testing.T) {
	res := AllocateCredit(utils.MustDecimal("100.00"), nil)
	assert.Empty(t, res.Allocations)
	assert.True(t, res.TotalAllocated.IsZero())
	assert.Equal(t, "100", res.Remaining.String())
}

func TestAllocateCreditNilDueDateSortsLast(t *testing.T) {
	candidates := []models.InvoiceDocument{
		outstandingDoc(1, nil, "300.00", "0"),
		outstandingDoc(2, datePtr(2025, time.June, 15), "300.00", "0"),
	}

	res := AllocateCredit(utils.MustDecimal("300.00"), candidates)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, uint(2), res.Allocations[0].InvoiceID)
}

func TestAllocateCreditStopsWhenExhausted(t *testing.T) {
	candidates := []models.InvoiceDocument{
		outstandingDoc(1, datePtr(2025, time.June, 15), "50.00", "0"),
		outstandingDoc(2, datePtr(2025, time.July, 15), "50.00", "0"),
		outstandingDoc(3, datePtr(2025, time.August, 15), "50.00", "0"),
	}

	res := AllocateCredit(utils.MustDecimal("50.00"), candidates)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, uint(1), res.Allocations[0].InvoiceID)
	assert.True(t, res.Remaining.IsZero())
}
