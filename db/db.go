package db

import (
	"farmops/models"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Tool{},
		&models.Part{},
		&models.Action{},
		&models.ActionUpdate{},
		&models.Checkout{},
		&models.Checkin{},
		&models.Issue{},
		&models.IssueHistory{},
	); err != nil {
		return err
	}

	// Partial indexes are Postgres-only; sqlite (tests) skips them and the
	// repo enforces the same rule with an explicit pre-check.
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// 同一工具最多一条 active（未归还且已有日期）checkout
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_active_per_tool
	  ON %s (tool_id)
	  WHERE is_returned = FALSE AND checkout_date IS NOT NULL;
	`, models.CheckoutTable, models.CheckoutTable)).Error; err != nil {
		return err
	}

	// 查询当前 checkout 更快
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_tool_date_desc
	  ON %s (tool_id, checkout_date DESC)
	  WHERE is_returned = FALSE;
	`, models.CheckoutTable, models.CheckoutTable)).Error; err != nil {
		return err
	}

	return nil
}
