package testutil

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"o2d-backend/internal/database"
)

// OpenDB connects to TEST_DATABASE_DSN and skips the test when it is
// not set. The given tables are emptied before the test and on cleanup.
func OpenDB(t testing.TB, tables ...any) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := database.Open(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	truncate := func() {
		for _, m := range tables {
			db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m)
		}
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// BrokenDB returns a handle whose every statement fails: it points at a
// closed local port and never pings on open.
func BrokenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=1 user=o2d dbname=o2d sslmode=disable connect_timeout=1",
	}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	if err != nil {
		t.Fatalf("open broken database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
