package db

import (
	"database/sql"
	"fmt"
	"time"

	"EchoCanvas/config"
	"EchoCanvas/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// DSN builds the MySQL data source name shared by database/sql and GORM.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	var err error
	DB, err = sql.Open("mysql", DSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	DB.SetMaxIdleConns(5)
	DB.SetMaxOpenConns(25)
	DB.SetConnMaxLifetime(time.Hour)

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database",
		logger.String("host", cfg.DBHost),
		logger.String("database", cfg.DBName))
	return nil
}

// CloseDB closes the database/sql pool.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

// InitDB creates the tables managed through raw SQL.
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	logger.Info("Database initialization completed")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	logger.Info("Users table initialized successfully (or already exists)")
	return nil
}
