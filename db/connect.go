package db

import (
	"fmt"
	"time"

	"todo-server/confs"
	"todo-server/entities"
	"todo-server/logging"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *confs.Config, logger *log.Logger) (Database, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL != "" {
		logger.Info("connecting to database using DB_URL")
	} else {
		logger.Info("connecting to database using individual parameters", "host", cfg.DBHost, "db", cfg.DBName)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:      logging.GormLogger(logger),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("database connection established")
	return &GormDatabase{DB: db}, nil
}

// Migrate creates or updates the users and todo_items tables.
func Migrate(database Database, logger *log.Logger) error {
	logger.Info("running database migrations")
	if err := database.GetDB().AutoMigrate(&entities.User{}, &entities.TodoItem{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("database migrations completed")
	return nil
}
