package db

import (
	"fmt"
	"os"
	"strings"
	"time"

	"Gin_postgres_redis_equipment_tool/config"
	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// ConnectDB opens the database named by DB_DRIVER (postgres by default,
// sqlite for single-node runs) and migrates it.
func ConnectDB() *gorm.DB {
	log := config.GetLogger()

	var dial gorm.Dialector
	switch strings.ToLower(os.Getenv("DB_DRIVER")) {
	case "sqlite":
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "equipment.db"
		}
		dial = sqlite.Open(path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	default:
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
		dial = postgres.Open(dsn)
	}

	var err error
	DB, err = gorm.Open(dial, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	if DB.Dialector.Name() == "sqlite" {
		// one writer at a time
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err = Migrate(DB); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Info("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{}, &models.Partner{},
		&models.Location{}, &models.Category{},
		&models.Equipment{}, &models.Assignment{},
		&models.Loan{}, &models.Maintenance{}, &models.Reservation{},
		&models.Message{}, &models.Sequence{},
	); err != nil {
		return err
	}

	// at most one open assignment per asset
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_equipment
	  ON %s (equipment_id)
	  WHERE unassigned_date IS NULL;
	`, models.AssignmentTable, models.AssignmentTable)).Error; err != nil {
		return err
	}

	// conflict check and sweep scan loans by asset and status
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_equipment_status
	  ON %s (equipment_id, status);
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	// records started before holds_asset existed
	if err := db.Model(&models.Maintenance{}).
		Where("status = ? AND holds_asset = ?", lifecycle.MaintenanceInProgress, false).
		Update("holds_asset", true).Error; err != nil {
		return err
	}

	return nil
}
