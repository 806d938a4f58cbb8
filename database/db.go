package database

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sisbridge-backend/models"
)

var DB *gorm.DB

func Connect() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, relying on process environment")
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "db"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable TimeZone=UTC",
		host, os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"))

	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey, which the document store relies on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}
	DB = db
}

func AutoMigrate() {
	if err := DB.AutoMigrate(
		&models.Customer{},
		&models.Product{},
		&models.ChargeLine{},
		&models.InvoiceDocument{},
		&models.DocumentLine{},
		&models.Reconciliation{},
		&models.SyncRun{},
		&models.IdempotencyKey{},
	); err != nil {
		log.Fatal().Err(err).Msg("automigrate failed")
	}
}
