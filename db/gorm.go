package db

import (
	"fmt"
	"strings"
	"time"

	"EchoCanvas/config"
	"EchoCanvas/logger"
	"EchoCanvas/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormDB is the GORM connection used by the song repositories. It shares
// the database with DB.
var GormDB *gorm.DB

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

// ConnectGormDB opens the GORM connection and tunes its pool.
func ConnectGormDB(cfg *config.Config) error {
	var err error
	GormDB, err = gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("Successfully connected to the database with GORM")
	return nil
}

// CloseGormDB 关闭 GORM 数据库连接
func CloseGormDB() error {
	if GormDB == nil {
		return nil
	}
	sqlDB, err := GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrateModels 自动迁移指定的模型
func AutoMigrateModels(models ...interface{}) error {
	if GormDB == nil {
		return fmt.Errorf("GORM database not initialized")
	}
	if err := GormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	logger.Info("Models migrated successfully with GORM", logger.Int("count", len(models)))
	return nil
}

// MigrateSongTables migrates the liked and uploaded song tables.
func MigrateSongTables() error {
	return AutoMigrateModels(&model.LikedSong{}, &model.UploadedSong{})
}
