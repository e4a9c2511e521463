package migration

import (
	"Go-Order-Intake/entities"
	"fmt"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")

	if err := db.AutoMigrate(&entities.SubmissionBatch{}); err != nil {
		return fmt.Errorf("error migrating submission batch table: %w", err)
	}
	if err := db.AutoMigrate(&entities.SubmittedOrder{}); err != nil {
		return fmt.Errorf("error migrating submitted order table: %w", err)
	}

	fmt.Println("Database migration complete")
	return nil
}
