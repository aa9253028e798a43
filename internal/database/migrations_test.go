package database

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/verdantstack/agrisync/internal/farm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:agrisync_db_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&farm.Plantation{}, &farm.Field{}, &farm.FinancialRecord{}, &migrationRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestBackfillFinancialRecordCurrency(t *testing.T) {
	db := newTestDB(t)

	legacy := &farm.FinancialRecord{ID: "record-legacy", FieldID: "field-1", RecordType: "expense", Amount: 120}
	modern := &farm.FinancialRecord{ID: "record-modern", FieldID: "field-1", RecordType: "income", Amount: 300, Currency: "USD"}
	if err := db.Create(legacy).Error; err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
	if err := db.Create(modern).Error; err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	var backfilled farm.FinancialRecord
	if err := db.Where("id = ?", "record-legacy").Take(&backfilled).Error; err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if backfilled.Currency != "GHS" {
		t.Fatalf("expected default currency, got %q", backfilled.Currency)
	}

	var untouched farm.FinancialRecord
	if err := db.Where("id = ?", "record-modern").Take(&untouched).Error; err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if untouched.Currency != "USD" {
		t.Fatalf("backfill must not overwrite explicit currency, got %q", untouched.Currency)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	var count int64
	if err := db.Model(&migrationRecord{}).Where("name = ?", migrationBackfillFinancialCurrency).Count(&count).Error; err != nil {
		t.Fatalf("failed to count migration records: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one migration record, got %d", count)
	}
}

func TestOpenSQLiteInitializesSchema(t *testing.T) {
	dsn := fmt.Sprintf("file:agrisync_open_test_%d?mode=memory&cache=shared", time.Now().UnixNano())

	db, err := OpenSQLite(dsn, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	for _, table := range []string{"users", "plantations", "fields", "planting_seasons", "activities", "financial_records", "activity_photos", "tombstones", "db_migrations"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %q after initialization", table)
		}
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("", nil); err == nil {
		t.Fatal("expected an error for empty path")
	}
}
