package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	log.Println("Running database migrations...")

	err := DB.AutoMigrate(
		&NarrativeEvent{},
		&MovementEvent{},
		&Alert{},
		&CorrelationSettings{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults() error {
	log.Println("Initializing default database records...")

	if _, err := GetOrCreateCorrelationSettings(DB); err != nil {
		return fmt.Errorf("failed to initialize correlation settings: %w", err)
	}

	return nil
}

// GetOrCreateCorrelationSettings retrieves or creates correlation settings
// (singleton). Accepts a db parameter rather than using the global DB to
// support transaction contexts and easier testing.
func GetOrCreateCorrelationSettings(db *gorm.DB) (*CorrelationSettings, error) {
	var settings CorrelationSettings
	result := db.First(&settings)
	if result.Error == gorm.ErrRecordNotFound {
		settings = *NewDefaultCorrelationSettings()
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
	} else if result.Error != nil {
		return nil, result.Error
	}
	return &settings, nil
}

// UpdateCorrelationSettings validates and saves correlation settings.
// Invalid calibrations are rejected before they can reach the engine.
func UpdateCorrelationSettings(db *gorm.DB, settings *CorrelationSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid correlation settings: %w", err)
	}
	return db.Save(settings).Error
}

// RecentNarrativeEvents returns narrative events detected within the lookback
// window, newest first.
func RecentNarrativeEvents(db *gorm.DB, lookback time.Duration) ([]NarrativeEvent, error) {
	cutoff := time.Now().UTC().Add(-lookback)
	var events []NarrativeEvent
	if err := db.Where("detected_at >= ?", cutoff).Order("detected_at desc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// RecentMovementEvents returns movement events detected within the lookback
// window, newest first.
func RecentMovementEvents(db *gorm.DB, lookback time.Duration) ([]MovementEvent, error) {
	cutoff := time.Now().UTC().Add(-lookback)
	var events []MovementEvent
	if err := db.Where("detected_at >= ?", cutoff).Order("detected_at desc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
