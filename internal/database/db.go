package database

import (
	"log"

	"nexusgate/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return err
	}

	log.Println("Migrating database...")
	err = DB.AutoMigrate(&models.Tenant{})
	if err != nil {
		return err
	}

	return nil
}
