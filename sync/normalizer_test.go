package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sisbridge-backend/models"
)

func detailRecord() RawRecord {
	return RawRecord{
		"InvoiceID":    "INV-3001",
		"invoicedetid": "41",
		"InvoiceRefNo": "REF-3001",
		"InvType":      "TF",
		"InvTypeDesc":  "Tuition",
		"InvoiceDate":  "2025-06-01T08:30:00.000+08:00",
		"CustomerID":   "S-2024-001",
		"CustomerType": "STUDENT",
		"CustomerName": "Dela Cruz, Juan",
		"prodid":       "77",
		"prodcode":     "TUI",
		"proddesc":     "Tuition Fee",
		"accountcode":  "4-1000",
		"qty":          "1",
		"unitprice":    "1000.00",
		"amount":       "1000.00",
		"TotalAmount":  "1000.00",
		"PayTerm":      "2",
		"Void":         "false",
		"progcode":     "BSCS",
		"yrlvl":        "2",
		"sy":           "2025-2026",
		"term":         "1",
	}
}

func scheduleRecords() []RawRecord {
	return []RawRecord{
		{"invoicepayid": "501", "duepercent": "60", "duedate": "2025-06-15T00:00:00+08:00", "remarks": "First Payment"},
		{"invoicepayid": "502", "duepercent": "40", "duedate": "2025-08-15T00:00:00+08:00", "remarks": ""},
	}
}

func TestNormalizeDetailWithSchedule(t *testing.T) {
	lines, errs := Normalize("INV-3001", []RawRecord{detailRecord()}, scheduleRecords())
	require.Empty(t, errs)
	require.Len(t, lines, 1)

	l := lines[0]
	assert.Equal(t, "INV-3001", l.ExternalChargeID)
	assert.Equal(t, 41, l.DetailID)
	assert.Equal(t, 0, l.AdjustmentDetailID)
	assert.Equal(t, models.KindStudent, l.CustomerKind)
	assert.Equal(t, "1000", l.UnitPrice.String())
	assert.Equal(t, 2, l.PayTermCount)
	assert.Equal(t, 60, l.DuePercent1)
	assert.Equal(t, 40, l.DuePercent2)
	assert.Equal(t, "(501,502)", l.PayInstallmentIDs)
	assert.False(t, l.Voided)

	// 2025-06-01T08:30+08:00 is 00:30 UTC
	require.NotNil(t, l.ChargeDate)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 30, 0, 0, time.UTC), *l.ChargeDate)
	require.NotNil(t, l.DueDate1)
	assert.Equal(t, time.UTC, l.DueDate1.Location())
}

func TestParseSOAPDateBothLayouts(t *testing.T) {
	withMillis := parseSOAPDate("2025-06-01T08:30:00.000+08:00")
	withoutMillis := parseSOAPDate("2025-06-01T08:30:00+08:00")
	require.NotNil(t, withMillis)
	require.NotNil(t, withoutMillis)
	assert.True(t, withMillis.Equal(*withoutMillis))
}

func TestParseSOAPDateUnparsableBecomesNil(t *testing.T) {
	assert.Nil(t, parseSOAPDate(""))
	assert.Nil(t, parseSOAPDate("06/01/2025"))
	assert.Nil(t, parseSOAPDate("not-a-date"))
}

func TestNormalizeDropsMalformedLineKeepsRest(t *testing.T) {
	bad := detailRecord()
	bad["invoicedetid"] = "42"
	bad["unitprice"] = "1,000.00"

	lines, errs := Normalize("INV-3001", []RawRecord{detailRecord(), bad}, nil)
	require.Len(t, lines, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, "unitprice", errs[0].Field)
}

func TestNormalizeAbsentAmountsDefaultToZero(t *testing.T) {
	rec := detailRecord()
	delete(rec, "amount")
	rec["TotalAmount"] = ""

	lines, errs := Normalize("INV-3001", []RawRecord{rec}, nil)
	require.Empty(t, errs)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Amount.IsZero())
	assert.True(t, lines[0].TotalAmount.IsZero())
}

func TestNormalizeAdjustmentFields(t *testing.T) {
	rec := detailRecord()
	rec["invdetadjid"] = "9"
	rec["invoiceadjno"] = "1"
	rec["adjustdate"] = "2025-07-01T00:00:00+08:00"
	rec["totaladjamount"] = "800.00"
	rec["adjremarks"] = "scholarship applied"

	lines, errs := Normalize("INV-3001", []RawRecord{rec}, nil)
	require.Empty(t, errs)
	require.Len(t, lines, 1)

	l := lines[0]
	assert.True(t, l.IsAdjustment())
	assert.Equal(t, 1, l.AdjustmentSeq)
	assert.Equal(t, "800", l.CumulativeAdjustedAmount.String())
	assert.Equal(t, "scholarship applied", l.AdjustmentRemarks)
	require.NotNil(t, l.AdjustmentDate)
}

func TestNormalizeVoidFlagIsCaseInsensitive(t *testing.T) {
	for _, v := range []string{"true", "True", "TRUE"} {
		rec := detailRecord()
		rec["Void"] = v
		lines, _ := Normalize("INV-3001", []RawRecord{rec}, nil)
		require.Len(t, lines, 1)
		assert.True(t, lines[0].Voided, "Void=%q", v)
	}
	for _, v := range []string{"false", "", "0", "no"} {
		rec := detailRecord()
		rec["Void"] = v
		lines, _ := Normalize("INV-3001", []RawRecord{rec}, nil)
		require.Len(t, lines, 1)
		assert.False(t, lines[0].Voided, "Void=%q", v)
	}
}

func TestCustomerFromRecords(t *testing.T) {
	c := CustomerFromRecords([]RawRecord{{"CustomerID": "", "CustomerName": "x"}, detailRecord()})
	require.NotNil(t, c)
	assert.Equal(t, "S-2024-001", c.CustomerID)
	assert.Equal(t, models.KindStudent, c.Kind)
	assert.Equal(t, "BSCS", c.Course)
	assert.True(t, c.Active)

	assert.Nil(t, CustomerFromRecords(nil))
	assert.Nil(t, CustomerFromRecords([]RawRecord{{"CustomerID": "1"}}))
}
