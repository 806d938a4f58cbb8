package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sisbridge-backend/models"
	"sisbridge-backend/sync"
)

// CustomerDirectory resolves external SIS customer ids to local partner rows
// and keeps the partner snapshot fresh from feed records.
type CustomerDirectory struct {
	db *gorm.DB
}

func NewCustomerDirectory(db *gorm.DB) *CustomerDirectory {
	return &CustomerDirectory{db: db}
}

func (d *CustomerDirectory) Resolve(ctx context.Context, customerID string) (uint, error) {
	var c models.Customer
	err := d.db.WithContext(ctx).
		Select("id").
		Where("customer_id = ? AND active", customerID).
		Take(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, sync.ErrCustomerNotFound
		}
		return 0, err
	}
	return c.ID, nil
}

func (d *CustomerDirectory) Upsert(ctx context.Context, customer *models.Customer) error {
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "kind", "email", "course", "year_level", "active", "updated_at",
		}),
	}).Create(customer).Error
}
