package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// CaseInsensitiveEqualExpr returns a SQL expression comparing column to a
// bind value without regard to case.
func CaseInsensitiveEqualExpr(conn *gorm.DB, column string) string {
	if IsSQLite(conn) {
		return fmt.Sprintf("%s = ? COLLATE NOCASE", column)
	}
	return fmt.Sprintf("LOWER(%s) = LOWER(?)", column)
}

// NormalizeLookup lowercases and trims a username or email before lookups.
func NormalizeLookup(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
