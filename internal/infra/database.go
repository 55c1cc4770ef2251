package infra

import (
	"fmt"
	"strings"

	"zedcmms/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table managed by AutoMigrate, in dependency order.
func Models() []any {
	return []any{
		&model.Role{},
		&model.User{},
		&model.AuditLog{},
		&model.ProductionLine{},
		&model.Machine{},
		&model.AssetHistory{},
		&model.Supplier{},
		&model.Part{},
		&model.InventoryLevel{},
		&model.StockTransaction{},
		&model.StockBatch{},
		&model.StockReservation{},
		&model.Worksheet{},
		&model.WorksheetPart{},
		&model.PMTask{},
		&model.PMHistory{},
		&model.Notification{},
	}
}

// NewDatabase opens PostgreSQL for postgres:// DSNs and SQLite for
// "sqlite:" or "file:" DSNs, migrates the schema and applies the
// PostgreSQL-only patches that AutoMigrate cannot express.
func NewDatabase(dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		db, err = gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, "sqlite:")), gcfg)
	case strings.HasPrefix(dsn, "file:"):
		db, err = gorm.Open(sqlite.Open(dsn), gcfg)
	default:
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if db.Dialector.Name() == "sqlite" {
		// one writer; in-memory databases are per-connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations migrates every model and applies schema patches. Tests call
// it directly on their own connections.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return applySchemaPatches(db)
}

// applySchemaPatches creates the partial indexes used by the scheduler
// queries. Each statement is idempotent.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"pm tasks due index", `
CREATE INDEX IF NOT EXISTS idx_pm_tasks_active_due
    ON pm_tasks (next_due_date)
    WHERE is_active = true`},
		{"open worksheets index", `
CREATE INDEX IF NOT EXISTS idx_worksheets_machine_open
    ON worksheets (machine_id)
    WHERE status <> 'Closed'`},
		{"unread notifications index", `
CREATE INDEX IF NOT EXISTS idx_notifications_user_unread
    ON notifications (user_id, created_at DESC)
    WHERE is_read = false`},
		{"fifo batch index", `
CREATE INDEX IF NOT EXISTS idx_stock_batches_fifo
    ON stock_batches (part_id, received_date)
    WHERE quantity_remaining > 0`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
