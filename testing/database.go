// Package testing provides test utilities and database setup for testing the storefront backend
package testing

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nextstep/storefront/models"
)

// TestDB represents an isolated in-memory test database
type TestDB struct {
	DB   *gorm.DB
	Name string
}

// SetupTestDB creates a new in-memory database with a unique name and runs migrations
func SetupTestDB() (*TestDB, error) {
	// Unique name so parallel tests never share state
	dbName := fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), rand.Intn(10000))

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}

	// A shared-cache in-memory database vanishes when its last connection
	// closes, so keep exactly one open
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	testDB := &TestDB{DB: db, Name: dbName}
	if err := testDB.migrate(); err != nil {
		return nil, err
	}

	return testDB, nil
}

// migrate applies the schema for all persisted entities
func (tdb *TestDB) migrate() error {
	err := tdb.DB.AutoMigrate(
		&models.User{},
		&models.OTPVerification{},
		&models.Address{},
		&models.Session{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate test database %s: %w", tdb.Name, err)
	}
	return nil
}

// Cleanup closes the database connection, dropping the in-memory database
func (tdb *TestDB) Cleanup() error {
	sqlDB, err := tdb.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// TestWithDB is a helper function that sets up a test database, runs the test function, and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.Cleanup(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// TruncateAll removes all rows while keeping the schema, useful between test cases
func (tdb *TestDB) TruncateAll() error {
	tables := []string{"audit_log", "sessions", "addresses", "otp_verifications", "users"}
	for _, table := range tables {
		if err := tdb.DB.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}
