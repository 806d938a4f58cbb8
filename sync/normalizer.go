package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"sisbridge-backend/models"
	"sisbridge-backend/utils"
)

// The upstream emits datetimes in exactly two layouts: with millisecond
// precision and without, both with an explicit offset. Everything is
// normalized to UTC.
var soapDateLayouts = []string{
	"2006-01-02T15:04:05.000-07:00",
	"2006-01-02T15:04:05-07:00",
}

// parseSOAPDate returns nil for blank input and for unparsable input; the
// latter is logged, never raised.
func parseSOAPDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range soapDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	log.Warn().Str("value", s).Msg("unparsable upstream date, stored as null")
	return nil
}

// Normalize turns raw charge-detail rows plus the charge's payment-schedule
// rows into canonical ChargeLines. Malformed rows produce a ParseError and
// are dropped; the rest of the charge still syncs.
func Normalize(chargeID string, details, schedule []RawRecord) ([]models.ChargeLine, []*ParseError) {
	sched := scheduleFromRecords(schedule)

	var lines []models.ChargeLine
	var errs []*ParseError
	for _, rec := range details {
		line, err := normalizeDetail(chargeID, rec)
		if err != nil {
			log.Warn().Str("charge_id", chargeID).Err(err).Msg("dropping malformed charge line")
			errs = append(errs, err)
			continue
		}
		sched.applyTo(line)
		lines = append(lines, *line)
	}
	return lines, errs
}

func normalizeDetail(chargeID string, rec RawRecord) (*models.ChargeLine, *ParseError) {
	id := strings.TrimSpace(rec["InvoiceID"])
	if id == "" {
		id = chargeID
	}

	unitPrice, perr := parseDecimalField(id, rec, "unitprice")
	if perr != nil {
		return nil, perr
	}
	amount, perr := parseDecimalField(id, rec, "amount")
	if perr != nil {
		return nil, perr
	}
	totalAmount, perr := parseDecimalField(id, rec, "TotalAmount")
	if perr != nil {
		return nil, perr
	}
	cumAdjusted, perr := parseDecimalField(id, rec, "totaladjamount")
	if perr != nil {
		return nil, perr
	}

	kind := models.KindApplicant
	if strings.EqualFold(rec["CustomerType"], "STUDENT") {
		kind = models.KindStudent
	}

	return &models.ChargeLine{
		ExternalChargeID:   id,
		DetailID:           utils.ParseIntDefault(rec["invoicedetid"], 0),
		AdjustmentDetailID: utils.ParseIntDefault(rec["invdetadjid"], 0),

		RefNumber:       rec["InvoiceRefNo"],
		TypeCode:        rec["InvType"],
		TypeDescription: rec["InvTypeDesc"],
		ChargeDate:      parseSOAPDate(rec["InvoiceDate"]),

		CustomerID:   rec["CustomerID"],
		CustomerKind: kind,
		CustomerName: rec["CustomerName"],

		ProductID:   utils.ParseIntDefault(rec["prodid"], 0),
		ProductCode: rec["prodcode"],
		ProductDesc: rec["proddesc"],
		AccountCode: rec["accountcode"],
		Quantity:    utils.ParseIntDefault(rec["qty"], 0),
		UnitPrice:   unitPrice,
		Amount:      amount,
		TotalAmount: totalAmount,

		PayTermCount: utils.ParseIntDefault(rec["PayTerm"], 0),

		AdjustmentSeq:            utils.ParseIntDefault(rec["invoiceadjno"], 0),
		AdjustmentDate:           parseSOAPDate(rec["adjustdate"]),
		CumulativeAdjustedAmount: cumAdjusted,
		AdjustmentRemarks:        rec["adjremarks"],

		Voided:      utils.ParseBoolLoose(rec["Void"]),
		VoidDate:    parseSOAPDate(rec["voiddate"]),
		VoidRemarks: rec["voidremarks"],

		Course:     rec["progcode"],
		YearLevel:  rec["yrlvl"],
		SchoolYear: rec["sy"],
		Term:       rec["term"],
	}, nil
}

func parseDecimalField(chargeID string, rec RawRecord, key string) (decimal.Decimal, *ParseError) {
	raw, ok := rec[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, &ParseError{ChargeID: chargeID, Field: key, Value: raw, Err: err}
	}
	return d, nil
}

// chargeSchedule is the merged payment-schedule view of one charge: up to
// four (percent, due date, remark, installment id) slots.
type chargeSchedule struct {
	percents [4]int
	dueDates [4]*time.Time
	remarks  [4]string
	payIDs   [4]string
	slots    int
}

func scheduleFromRecords(recs []RawRecord) chargeSchedule {
	var s chargeSchedule
	for i, rec := range recs {
		if i >= 4 {
			break
		}
		s.percents[i] = utils.ParseIntDefault(rec["duepercent"], 0)
		s.dueDates[i] = parseSOAPDate(rec["duedate"])
		s.remarks[i] = rec["remarks"]
		s.payIDs[i] = rec["invoicepayid"]
		s.slots = i + 1
	}
	return s
}

func (s chargeSchedule) applyTo(line *models.ChargeLine) {
	if s.slots == 0 {
		return
	}
	line.DuePercent1, line.DuePercent2, line.DuePercent3, line.DuePercent4 =
		s.percents[0], s.percents[1], s.percents[2], s.percents[3]
	line.DueDate1, line.DueDate2, line.DueDate3, line.DueDate4 =
		s.dueDates[0], s.dueDates[1], s.dueDates[2], s.dueDates[3]
	line.Remark1, line.Remark2, line.Remark3, line.Remark4 =
		s.remarks[0], s.remarks[1], s.remarks[2], s.remarks[3]

	ids := make([]string, 0, s.slots)
	for i := 0; i < s.slots; i++ {
		ids = append(ids, s.payIDs[i])
	}
	line.PayInstallmentIDs = fmt.Sprintf("(%s)", strings.Join(ids, ","))
	if line.PayTermCount == 0 {
		line.PayTermCount = s.slots
	}
}

// CustomerFromRecords builds the partner snapshot carried by a charge's
// records, or nil when the feed gave no usable customer fields.
func CustomerFromRecords(recs []RawRecord) *models.Customer {
	for _, rec := range recs {
		id := strings.TrimSpace(rec["CustomerID"])
		name := strings.TrimSpace(rec["CustomerName"])
		if id == "" || name == "" {
			continue
		}
		kind := models.KindApplicant
		if strings.EqualFold(rec["CustomerType"], "STUDENT") {
			kind = models.KindStudent
		}
		return &models.Customer{
			CustomerID: id,
			Name:       name,
			Kind:       kind,
			Email:      rec["sms_email"],
			Course:     rec["progcode"],
			YearLevel:  rec["yrlvl"],
			Active:     true,
		}
	}
	return nil
}
