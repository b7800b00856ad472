package database

import (
	"fmt"
	"time"

	"github.com/1rvyn/movie-tier-predictor/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 5

// Connect opens the sqlite database at path and migrates the schema.
func Connect(path string, log *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	log.Info("opening database", zap.String("path", path))

	var (
		db  *gorm.DB
		err error
	)
	// sqlite can report the file as busy while a previous process releases it.
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			break
		}
		log.Warn("failed to open database, retrying", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&models.LoginEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
