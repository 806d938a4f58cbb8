package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sisbridge-backend/models"
)

// LineStore persists staged charge lines. Lines are append-only by identity
// (external_charge_id, detail_id, adjustment_detail_id); re-observing a line
// merges its non-identity fields, last write wins. The synced flag is never
// part of the merge, so it can only move false -> true via MarkSynced.
type LineStore struct {
	db *gorm.DB
}

func NewLineStore(db *gorm.DB) *LineStore {
	return &LineStore{db: db}
}

// chargeLineMergeColumns are the columns a re-put overwrites. Identity
// columns, id, created_at and synced are deliberately absent.
var chargeLineMergeColumns = []string{
	"ref_number", "type_code", "type_description", "charge_date",
	"customer_id", "customer_kind", "customer_name",
	"product_id", "product_code", "product_desc", "account_code",
	"quantity", "unit_price", "amount", "total_amount",
	"pay_term_count", "pay_installment_ids",
	"due_percent1", "due_percent2", "due_percent3", "due_percent4",
	"due_date1", "due_date2", "due_date3", "due_date4",
	"remark1", "remark2", "remark3", "remark4",
	"adjustment_seq", "adjustment_date", "cumulative_adjusted_amount", "adjustment_remarks",
	"voided", "void_date", "void_remarks",
	"course", "year_level", "school_year", "term",
	"updated_at",
}

func (s *LineStore) Put(ctx context.Context, line *models.ChargeLine) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "external_charge_id"}, {Name: "detail_id"}, {Name: "adjustment_detail_id"},
		},
		DoUpdates: clause.AssignmentColumns(chargeLineMergeColumns),
	}).Create(line).Error
}

func (s *LineStore) ChargeLines(ctx context.Context, externalChargeID string) ([]models.ChargeLine, error) {
	var lines []models.ChargeLine
	err := s.db.WithContext(ctx).
		Where("external_charge_id = ?", externalChargeID).
		Order("adjustment_seq ASC, detail_id ASC, adjustment_detail_id ASC").
		Find(&lines).Error
	return lines, err
}

func (s *LineStore) MarkSynced(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.ChargeLine{}).
		Where("id IN ?", ids).
		Update("synced", true).Error
}
