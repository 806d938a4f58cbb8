package sync

import (
	"time"

	"github.com/shopspring/decimal"

	"sisbridge-backend/models"
)

// InstallmentLine is one product slice inside an installment.
type InstallmentLine struct {
	ProductID   int
	Description string
	Quantity    int
	PriceUnit   decimal.Decimal
}

// Installment is one due-dated slice of a charge's total. For a pay-term
// count of N the planner emits exactly N installments; the last one carries
// the remainder so the slices sum back to the source amounts exactly.
type Installment struct {
	Sequence         int // 1-based slot index
	Percentage       int
	DueDate          *time.Time
	IsFirstPayment   bool
	Remark           string
	PayInstallmentID string
	Lines            []InstallmentLine
}

// LineDelta is the per-product net change of one adjustment generation:
// current amount minus baseline amount. A product missing on one side
// contributes its whole amount, signed by which side it is missing from.
type LineDelta struct {
	ProductID   int
	RefNumber   string
	Description string
	Amount      decimal.Decimal
}

// ChargeHeader is the document-level context shared by every line of a charge.
type ChargeHeader struct {
	ExternalChargeID string
	RefNumber        string
	TypeDescription  string
	CustomerID       string
	CustomerKind     string
	InvoiceDate      *time.Time
	Course           string
	YearLevel        string
	SchoolYear       string
	Term             string
}

// HeaderFromLine extracts the shared header off any line of the charge.
func HeaderFromLine(l *models.ChargeLine) ChargeHeader {
	return ChargeHeader{
		ExternalChargeID: l.ExternalChargeID,
		RefNumber:        l.RefNumber,
		TypeDescription:  l.TypeDescription,
		CustomerID:       l.CustomerID,
		CustomerKind:     l.CustomerKind,
		InvoiceDate:      l.ChargeDate,
		Course:           l.Course,
		YearLevel:        l.YearLevel,
		SchoolYear:       l.SchoolYear,
		Term:             l.Term,
	}
}

// SyncError is one reportable failure inside a summary.
type SyncError struct {
	ChargeID string `json:"charge_id"`
	Stage    string `json:"stage"`
	Message  string `json:"message"`
}

// Summary is what every exposed sync operation returns. Never a silent
// failure: every failed charge appears in Errors.
type Summary struct {
	Created int         `json:"created"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errors  []SyncError `json:"errors,omitempty"`
}

func (s *Summary) addError(chargeID, stage string, err error) {
	s.Failed++
	s.Errors = append(s.Errors, SyncError{ChargeID: chargeID, Stage: stage, Message: err.Error()})
}
