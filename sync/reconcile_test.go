package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sisbridge-backend/models"
	"sisbridge-backend/utils"
)

func genLine(productID int, amount string, seq int) models.ChargeLine {
	return models.ChargeLine{
		ExternalChargeID: "INV-2001",
		RefNumber:        "REF-2001",
		ProductID:        productID,
		ProductDesc:      "Fee",
		Amount:           utils.MustDecimal(amount),
		AdjustmentSeq:    seq,
	}
}

func TestReconcileAmountChange(t *testing.T) {
	baseline := []models.ChargeLine{genLine(1, "500.00", 0)}
	current := []models.ChargeLine{genLine(1, "350.00", 1)}

	deltas := Reconcile(baseline, current)
	require.Len(t, deltas, 1)
	assert.Equal(t, 1, deltas[0].ProductID)
	assert.Equal(t, "-150", deltas[0].Amount.String())
}

func TestReconcileLineRemovedAndAdded(t *testing.T) {
	baseline := []models.ChargeLine{
		genLine(1, "500.00", 0),
		genLine(2, "200.00", 0),
	}
	current := []models.ChargeLine{
		genLine(1, "500.00", 1),
		genLine(3, "75.50", 1),
	}

	deltas := Reconcile(baseline, current)
	require.Len(t, deltas, 2)
	// Sorted by product id, unchanged product 1 dropped.
	assert.Equal(t, 2, deltas[0].ProductID)
	assert.Equal(t, "-200", deltas[0].Amount.String())
	assert.Equal(t, 3, deltas[1].ProductID)
	assert.Equal(t, "75.5", deltas[1].Amount.String())
}

func TestReconcileSumsRepeatedProducts(t *testing.T) {
	baseline := []models.ChargeLine{
		genLine(1, "100.00", 0),
		genLine(1, "50.00", 0),
	}
	current := []models.ChargeLine{genLine(1, "175.00", 1)}

	deltas := Reconcile(baseline, current)
	require.Len(t, deltas, 1)
	assert.Equal(t, "25", deltas[0].Amount.String())
}

func TestReconcileEqualCumulativeEmitsNothing(t *testing.T) {
	baseline := []models.ChargeLine{genLine(1, "500.00", 0)}
	current := []models.ChargeLine{genLine(1, "500.00", 1)}

	assert.Empty(t, Reconcile(baseline, current))
	// At equality the direction choice is a dead branch; pin it anyway.
	assert.Equal(t, models.DirectionCreditNote,
		AdjustmentDirection(utils.MustDecimal("500.00"), utils.MustDecimal("500.00")))
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	baseline := []models.ChargeLine{genLine(1, "500.00", 0)}
	current := []models.ChargeLine{genLine(1, "350.00", 1)}

	_ = Reconcile(baseline, current)
	assert.Equal(t, "500", baseline[0].Amount.String())
	assert.Equal(t, "350", current[0].Amount.String())
}

func TestAdjustmentDirection(t *testing.T) {
	assert.Equal(t, models.DirectionCreditNote,
		AdjustmentDirection(utils.MustDecimal("1000.00"), utils.MustDecimal("800.00")))
	assert.Equal(t, models.DirectionDebit,
		AdjustmentDirection(utils.MustDecimal("800.00"), utils.MustDecimal("1000.00")))
}
