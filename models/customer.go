package models

import "time"

// Customer is the local partner record a document is billed to. Rows are
// upserted from feed records; portal/user provisioning stays external.
type Customer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	CustomerID string `json:"customer_id" gorm:"not null;uniqueIndex"` // external SIS id
	Name       string `json:"name" gorm:"not null"`
	Kind       string `json:"kind" gorm:"size:20"` // student | applicant
	Email      string `json:"email"`
	Course     string `json:"course"`
	YearLevel  string `json:"year_level"`
	Active     bool   `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
