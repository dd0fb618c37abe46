package database

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/daytally/backend/internal/country"
	"github.com/daytally/backend/internal/trips"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:daytally_db_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := OpenSQLite(dsn, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	return db
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("", nil); err == nil {
		t.Fatal("expected missing path error")
	}
}

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	db := openTestDatabase(t)

	for _, table := range []string{"trips", "countries", "user_identities", "db_migrations"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func TestUppercaseCountryCodesMigration(t *testing.T) {
	db := openTestDatabase(t)

	// Seed pre-normalization rows the way early imports wrote them.
	trip := trips.Trip{
		ID:          "trip-1",
		UserID:      "user-1",
		CountryCode: "be",
		DateFrom:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		DateTo:      time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&trip).Error; err != nil {
		t.Fatalf("failed to seed trip: %v", err)
	}
	if err := db.Create(&country.Country{Code: "fr", Label: "fr"}).Error; err != nil {
		t.Fatalf("failed to seed country: %v", err)
	}
	if err := db.Where("name = ?", migrationUppercaseCountryCodes).Delete(&migrationRecord{}).Error; err != nil {
		t.Fatalf("failed to reset migration record: %v", err)
	}

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	var storedTrip trips.Trip
	if err := db.First(&storedTrip).Error; err != nil {
		t.Fatalf("failed to load trip: %v", err)
	}
	if storedTrip.CountryCode != "BE" {
		t.Fatalf("expected BE, got %s", storedTrip.CountryCode)
	}

	var storedCountry country.Country
	if err := db.First(&storedCountry).Error; err != nil {
		t.Fatalf("failed to load country: %v", err)
	}
	if storedCountry.Code != "FR" {
		t.Fatalf("expected FR, got %s", storedCountry.Code)
	}

	var record migrationRecord
	if err := db.Where("name = ?", migrationUppercaseCountryCodes).Take(&record).Error; err != nil {
		t.Fatalf("expected migration record: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		t.Fatal("expected applied timestamp")
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	db := openTestDatabase(t)

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("failed to re-apply migrations: %v", err)
	}

	var count int64
	if err := db.Model(&migrationRecord{}).Where("name = ?", migrationUppercaseCountryCodes).Count(&count).Error; err != nil {
		t.Fatalf("failed to count records: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one migration record, got %d", count)
	}
}
