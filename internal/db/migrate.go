package db

import (
	"fmt"

	"github.com/testimonialkit/testimonialkit/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, "":
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Testimonial{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return ensureIndexes(conn)
}

// ensureIndexes adds the composite index behind public testimonial listings.
func ensureIndexes(conn *gorm.DB) error {
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_testimonials_user_approved_created
		ON testimonials (user_id, is_approved, created_at)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create testimonials index: %w", errIndex)
	}
	return nil
}
