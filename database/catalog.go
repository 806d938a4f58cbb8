package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sisbridge-backend/models"
)

// ProductCatalog mirrors the upstream product master, keyed by prod_id.
type ProductCatalog struct {
	db *gorm.DB
}

func NewProductCatalog(db *gorm.DB) *ProductCatalog {
	return &ProductCatalog{db: db}
}

func (c *ProductCatalog) UpsertAll(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "prod_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"code", "description", "account_code", "active", "updated_at",
		}),
	}).Create(&products).Error
}
