package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationUppercaseCountryCodes = "2026-07-20_uppercase_country_codes"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationUppercaseCountryCodes, apply: uppercaseCountryCodes},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// uppercaseCountryCodes repairs rows imported before country normalization
// moved server-side: early CSV uploads stored codes exactly as typed.
func uppercaseCountryCodes(db *gorm.DB) error {
	if err := db.Exec("UPDATE trips SET country_code = upper(country_code) WHERE country_code <> upper(country_code);").Error; err != nil {
		return err
	}
	return db.Exec("UPDATE countries SET code = upper(code) WHERE code <> upper(code);").Error
}
