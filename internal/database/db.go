package database

import (
	"fmt"

	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenShiftIndex enforces at most one open shift per cashier at the database
// level.
const OpenShiftIndex = "idx_shifts_one_open_per_cashier"

// OrderEntryIndex allows one entry per (shift, kind, order), so a replayed
// order event cannot be booked twice.
const OrderEntryIndex = "idx_shift_transactions_one_per_order"

// Open connects to Postgres. Duplicate-key errors are translated to
// gorm.ErrDuplicatedKey so repositories can map them to conflicts.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Shift{},
		&models.ShiftTransaction{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// AutoMigrate cannot express partial indexes
	if err := db.Exec(fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON shifts (cashier_id) WHERE status = '%s'",
		OpenShiftIndex, models.ShiftOpen,
	)).Error; err != nil {
		return fmt.Errorf("create %s: %w", OpenShiftIndex, err)
	}
	if err := db.Exec(fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON shift_transactions (shift_id, kind, related_order_id) WHERE related_order_id IS NOT NULL",
		OrderEntryIndex,
	)).Error; err != nil {
		return fmt.Errorf("create %s: %w", OrderEntryIndex, err)
	}

	logger.Info("database migration completed")
	return nil
}
