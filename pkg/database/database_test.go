package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/lib/pq"
)

func sqliteConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Driver: DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "t.db") + "?_foreign_keys=on",
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_MAX_CONNS", "bad")
	cfg := ConfigFromEnv()
	if cfg.Driver != DriverSQLite {
		t.Fatalf("driver = %q", cfg.Driver)
	}
	if cfg.DSN == "" || cfg.MaxConns != 5 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect(Config{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	cfg := sqliteConfig(t)
	if err := Migrate(cfg); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := Migrate(cfg); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	var count int64
	if err := db.Get(&count, `SELECT count FROM visitor_counter WHERE id = 1`); err != nil {
		t.Fatalf("visitor_counter seed: %v", err)
	}
	if count != 0 {
		t.Fatalf("seed count = %d, want 0", count)
	}
}

func TestMigrateDown(t *testing.T) {
	cfg := sqliteConfig(t)
	m, err := NewMigrator(cfg)
	if err != nil {
		t.Fatalf("NewMigrator: %v", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := m.Down(); err != nil {
		t.Fatalf("down: %v", err)
	}
	if _, _, err := m.Version(); !errors.Is(err, migrate.ErrNilVersion) {
		t.Fatalf("version after down: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cfg := sqliteConfig(t)
	if err := Migrate(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	const q = `INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`
	if _, err := db.Exec(q, "bob", "b@x.com", "h"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err = db.Exec(q, "bob", "other@x.com", "h")
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	if !IsUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Fatal("pq 23505 should be a unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Fatal("pq 23503 is a foreign key violation")
	}
	if IsUniqueViolation(nil) || IsUniqueViolation(errors.New("x")) {
		t.Fatal("plain errors are not unique violations")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	cfg := sqliteConfig(t)
	if err := Migrate(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`INSERT INTO project_requests (user_id, project_id, message) VALUES (42, 42, 'x')`)
	if !IsForeignKeyViolation(err) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}
	if !IsForeignKeyViolation(&pq.Error{Code: "23503"}) {
		t.Fatal("pq 23503 should be a foreign key violation")
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := quoteLiteral("it's"); got != "'it''s'" {
		t.Fatalf("quoteLiteral = %s", got)
	}
}

func TestSQLiteDSNForcesForeignKeys(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"file:a.db", "file:a.db?_foreign_keys=on"},
		{"file:a.db?_busy_timeout=5000", "file:a.db?_busy_timeout=5000&_foreign_keys=on"},
		{"file:a.db?_foreign_keys=off", "file:a.db?_foreign_keys=on"},
		{"file:a.db?_fk=0", "file:a.db?_foreign_keys=on"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.dsn); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestConnectEnforcesForeignKeysWithoutDSNFlag(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, DSN: "file:" + filepath.Join(t.TempDir(), "t.db")}
	if err := Migrate(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	var on int
	if err := db.Get(&on, `PRAGMA foreign_keys`); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if on != 1 {
		t.Fatalf("foreign_keys = %d, want 1", on)
	}
	_, err = db.Exec(`INSERT INTO project_requests (user_id, project_id, message) VALUES (42, 42, 'x')`)
	if !IsForeignKeyViolation(err) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}
}
