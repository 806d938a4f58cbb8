package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate applies the idempotent schema migrations AutoMigrate cannot
// express:
// - Money column types (NUMERIC(12,2))
// - The document idempotency key (ref_number, pay_installment_id, adjustment_number)
// - Query indexes for the outstanding-invoice scan and allocation lookups
// - Basic CHECK constraints on direction, state and amounts
func Migrate() error {
	return DB.Transaction(func(tx *gorm.DB) error {
		// --- Enforce money columns as NUMERIC(12,2) (idempotent ALTERs) ---
		alters := []string{
			`ALTER TABLE charge_lines      ALTER COLUMN unit_price                 TYPE numeric(12,2)`,
			`ALTER TABLE charge_lines      ALTER COLUMN amount                     TYPE numeric(12,2)`,
			`ALTER TABLE charge_lines      ALTER COLUMN total_amount               TYPE numeric(12,2)`,
			`ALTER TABLE charge_lines      ALTER COLUMN cumulative_adjusted_amount TYPE numeric(12,2)`,
			`ALTER TABLE invoice_documents ALTER COLUMN amount_total               TYPE numeric(12,2)`,
			`ALTER TABLE invoice_documents ALTER COLUMN amount_reconciled          TYPE numeric(12,2)`,
			`ALTER TABLE document_lines    ALTER COLUMN price_unit                 TYPE numeric(12,2)`,
			`ALTER TABLE reconciliations   ALTER COLUMN amount                     TYPE numeric(12,2)`,
		}
		for _, stmt := range alters {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("money type migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Unique keys and query indexes (idempotent) ---
		indexes := []string{
			// One document per (charge ref, installment, adjustment generation).
			// Installment documents carry adjustment_number 0; adjustment
			// documents carry pay_installment_id ''.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_invoice_documents_doc_key ON invoice_documents (ref_number, pay_installment_id, adjustment_number)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_charge_lines_identity ON charge_lines (external_charge_id, detail_id, adjustment_detail_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_key ON idempotency_keys (key)`,
			`CREATE INDEX IF NOT EXISTS idx_invoice_documents_outstanding ON invoice_documents (partner_id, state, direction, due_date)`,
			`CREATE INDEX IF NOT EXISTS idx_reconciliations_credit_note ON reconciliations (credit_note_id)`,
			`CREATE INDEX IF NOT EXISTS idx_reconciliations_invoice ON reconciliations (invoice_id)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Basic CHECK constraints (idempotent) ---
		checks := []string{
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'invoice_documents'::regclass
					  AND conname  = 'chk_invoice_documents_direction'
				) THEN
					ALTER TABLE invoice_documents
					ADD CONSTRAINT chk_invoice_documents_direction
					CHECK (direction IN ('debit_invoice', 'credit_note'));
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'invoice_documents'::regclass
					  AND conname  = 'chk_invoice_documents_state'
				) THEN
					ALTER TABLE invoice_documents
					ADD CONSTRAINT chk_invoice_documents_state
					CHECK (state IN ('draft', 'posted'));
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'invoice_documents'::regclass
					  AND conname  = 'chk_invoice_documents_reconciled_nonneg'
				) THEN
					ALTER TABLE invoice_documents
					ADD CONSTRAINT chk_invoice_documents_reconciled_nonneg
					CHECK (amount_reconciled >= 0);
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'reconciliations'::regclass
					  AND conname  = 'chk_reconciliations_amount_nonneg'
				) THEN
					ALTER TABLE reconciliations
					ADD CONSTRAINT chk_reconciliations_amount_nonneg
					CHECK (amount >= 0);
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
}
