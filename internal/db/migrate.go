package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/models"
)

// Migrate creates or updates the engine's own tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.Rule{},
		&models.Execution{},
		&models.Notification{},
		&models.ExternalEmail{},
		&models.NotificationTemplate{},
	)
}
