package helpers

import (
	"testing"

	"journal-backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an in-memory SQLite database with every model migrated.
// The pool is pinned to one connection so the in-memory database survives
// for the life of the test and concurrent callers serialize on it.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err, "Failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	require.NoError(t, db.AutoMigrate(models.AllModels()...), "Failed to migrate test database")

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// AssertRecordCount verifies the number of records in a table
func AssertRecordCount(t *testing.T, db *gorm.DB, tableName string, expectedCount int64) {
	t.Helper()
	var count int64
	err := db.Table(tableName).Count(&count).Error
	require.NoError(t, err, "Failed to count records in table %s", tableName)
	require.Equal(t, expectedCount, count, "Expected %d records in table %s, got %d", expectedCount, tableName, count)
}
