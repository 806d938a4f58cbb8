package models

import "time"

// Product is a billable item known to the ledger, keyed by the upstream
// product id. The catalog is refreshed from feed lines on every sync and
// serves reporting; document lines carry their own product snapshot.
type Product struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ProdID      int    `json:"prod_id" gorm:"not null;uniqueIndex"`
	ProdTypeID  int    `json:"prod_type_id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	AccountCode string `json:"account_code"`
	Active      bool   `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
