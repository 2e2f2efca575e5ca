package db

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// EnsureSchema creates schema if it does not exist yet.
func EnsureSchema(d *gorm.DB, schema string) error {
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(schema)).Error
}
