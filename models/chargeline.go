package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerKind mirrors the upstream CustomerType column.
const (
	KindStudent   = "student"
	KindApplicant = "applicant"
)

// ChargeLine is one staged billing line of one charge, at one adjustment
// generation. Lines are append-only: re-observation updates non-identity
// fields, nothing is ever deleted. adjustment_seq 0 is the unadjusted
// baseline; 1..N are successive adjustment generations.
type ChargeLine struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Identity (unique composite, see database.Migrate)
	ExternalChargeID   string `json:"external_charge_id" gorm:"not null;index:idx_charge_lines_identity,unique,priority:1"`
	DetailID           int    `json:"detail_id" gorm:"index:idx_charge_lines_identity,unique,priority:2"`
	AdjustmentDetailID int    `json:"adjustment_detail_id" gorm:"index:idx_charge_lines_identity,unique,priority:3"`

	// Charge header (denormalized from the detail view)
	RefNumber       string     `json:"ref_number" gorm:"index"`
	TypeCode        string     `json:"type_code"`
	TypeDescription string     `json:"type_description"`
	ChargeDate      *time.Time `json:"charge_date"`

	CustomerID   string `json:"customer_id" gorm:"index"`
	CustomerKind string `json:"customer_kind" gorm:"size:20"`
	CustomerName string `json:"customer_name"`

	// Line item
	ProductID   int             `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductDesc string          `json:"product_desc"`
	AccountCode string          `json:"account_code"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2)"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2)"` // charge total at generation 0

	// Payment schedule (merged from the schedule view, up to 4 slots)
	PayTermCount      int        `json:"pay_term_count"`
	PayInstallmentIDs string     `json:"pay_installment_ids"` // raw "(id1,id2,...)" tuple from upstream
	DuePercent1       int        `json:"due_percent1"`
	DuePercent2       int        `json:"due_percent2"`
	DuePercent3       int        `json:"due_percent3"`
	DuePercent4       int        `json:"due_percent4"`
	DueDate1          *time.Time `json:"due_date1"`
	DueDate2          *time.Time `json:"due_date2"`
	DueDate3          *time.Time `json:"due_date3"`
	DueDate4          *time.Time `json:"due_date4"`
	Remark1           string     `json:"remark1"`
	Remark2           string     `json:"remark2"`
	Remark3           string     `json:"remark3"`
	Remark4           string     `json:"remark4"`

	// Adjustment generation
	AdjustmentSeq            int             `json:"adjustment_seq" gorm:"index"`
	AdjustmentDate           *time.Time      `json:"adjustment_date"`
	CumulativeAdjustedAmount decimal.Decimal `json:"cumulative_adjusted_amount" gorm:"type:numeric(12,2)"`
	AdjustmentRemarks        string          `json:"adjustment_remarks"`

	// Void observation; voided lines stay stored but never feed documents.
	Voided      bool       `json:"voided"`
	VoidDate    *time.Time `json:"void_date"`
	VoidRemarks string     `json:"void_remarks"`

	// Academic context carried onto documents
	Course     string `json:"course"`
	YearLevel  string `json:"year_level"`
	SchoolYear string `json:"school_year"`
	Term       string `json:"term"`

	// Synced flips to true once a document covering this line is posted.
	// The store must never flip it back to false.
	Synced bool `json:"synced"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdjustment reports whether the line belongs to an adjustment generation.
func (l *ChargeLine) IsAdjustment() bool {
	return l.AdjustmentDetailID != 0
}

// DuePercent returns the percentage for slot i (1-based), 0 out of range.
func (l *ChargeLine) DuePercent(i int) int {
	switch i {
	case 1:
		return l.DuePercent1
	case 2:
		return l.DuePercent2
	case 3:
		return l.DuePercent3
	case 4:
		return l.DuePercent4
	}
	return 0
}

// DueDate returns the due date for slot i (1-based), nil out of range.
func (l *ChargeLine) DueDate(i int) *time.Time {
	switch i {
	case 1:
		return l.DueDate1
	case 2:
		return l.DueDate2
	case 3:
		return l.DueDate3
	case 4:
		return l.DueDate4
	}
	return nil
}
