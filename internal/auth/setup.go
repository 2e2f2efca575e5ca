package auth

import (
	"fmt"
	"log"

	"github.com/vivaldi20/member-directory/internal/db"
	"gorm.io/gorm"
)

func Init(conn *gorm.DB) error {
	if err := db.EnsureSchema(conn, Schema); err != nil {
		return fmt.Errorf("ensure schema %s: %w", Schema, err)
	}

	if err := conn.AutoMigrate(&User{}, &AuthToken{}); err != nil {
		return fmt.Errorf("auto-migrate auth tables: %w", err)
	}

	log.Println("Auth module initialized")
	return nil
}
