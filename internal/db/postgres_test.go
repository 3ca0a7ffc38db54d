package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

func TestPostgresDSN(t *testing.T) {
	got := postgresDSN(Config{
		PostgresUser: "u", PostgresPassword: "p", PostgresHost: "h", PostgresPort: "5432",
		PostgresName: "n", PostgresSSLMode: "disable",
	})
	if got != "postgres://u:p@h:5432/n?sslmode=disable" {
		t.Fatalf("postgresDSN=%q", got)
	}
	if got := postgresDSN(Config{DSN: "postgres://override"}); got != "postgres://override" {
		t.Fatalf("DSN override ignored: %q", got)
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := sqliteDSN("a.db"); got != "a.db?_busy_timeout=5000&_journal_mode=WAL" {
		t.Fatalf("sqliteDSN=%q", got)
	}
	if got := sqliteDSN("file:a.db?cache=shared"); got != "file:a.db?cache=shared&_busy_timeout=5000&_journal_mode=WAL" {
		t.Fatalf("sqliteDSN=%q", got)
	}
}

func TestSQLiteServiceMigratesAndPings(t *testing.T) {
	svc, err := NewService(logger.NewNop(), Config{
		Driver:     DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "svc.db"),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	if err := svc.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !svc.DB().Migrator().HasTable("conversation_session") {
		t.Fatalf("conversation_session table missing")
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := NewService(logger.NewNop(), Config{Driver: "mysql"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
