package infra

import (
	"fmt"

	"pickupshop/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM connection and, when autoMigrate is set, brings
// the schema up to date.
//
// TranslateError is on so unique violations surface as gorm.ErrDuplicatedKey.
func NewDatabase(dsn string, autoMigrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if autoMigrate {
		if err := RunMigrations(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// RunMigrations creates or updates every table, then applies the patches
// AutoMigrate cannot express. Also used by the integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Customer{},
		&model.PickupLocation{},
		&model.Schedule{},
		&model.Product{},
		&model.DiscountTier{},
		&model.Order{},
		&model.OrderLine{},
		&model.StockMovement{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM tags cannot express.
// Each statement is guarded so re-running on a patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"discount tier quantity and price must be positive", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_discount_tiers_positive') THEN
    ALTER TABLE discount_tiers
      ADD CONSTRAINT chk_discount_tiers_positive CHECK (quantity > 0 AND price > 0);
  END IF;
END $$`},
		{"order line quantity must be positive", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_order_lines_quantity_positive') THEN
    ALTER TABLE order_lines
      ADD CONSTRAINT chk_order_lines_quantity_positive CHECK (quantity > 0);
  END IF;
END $$`},
		// Partial index for the pickup counter: open lines per order.
		{"open lines index", `
CREATE INDEX IF NOT EXISTS idx_order_lines_open
    ON order_lines (order_id)
    WHERE is_finish = false`},
		{"movements by product and time", `
CREATE INDEX IF NOT EXISTS idx_stock_movements_product_created
    ON stock_movements (product_id, created_at DESC)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
