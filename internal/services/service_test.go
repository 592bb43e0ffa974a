package services

import (
	"testing"

	"github.com/framehire/framehire-backend/internal/database"
	"github.com/framehire/framehire-backend/internal/secrets"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testCipherKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// One connection keeps every statement on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedRoles(db))
	return db
}

func newTestTokenService() *TokenService {
	return NewTokenService("test-jwt-secret", 0)
}

func newTestCipher(t *testing.T) *secrets.Cipher {
	t.Helper()
	c, err := secrets.NewCipher(testCipherKey)
	require.NoError(t, err)
	return c
}
