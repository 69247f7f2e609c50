package db

import (
	"testing"
	"time"

	"Gin_postgres_redis_equipment_tool/locks"
	"Gin_postgres_redis_equipment_tool/notify"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(gdb); err != nil {
		sqlDB.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })

	return gdb
}

// NewTestRepo returns a Repo over NewTestDB with an in-process locker and an
// event recorder.
func NewTestRepo(t *testing.T) (*Repo, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	return NewRepo(NewTestDB(t), locks.NewLocal(), rec), rec
}
