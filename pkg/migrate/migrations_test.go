package migrate_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestOrdersMigrationEnforcesIdempotencyAndStock(t *testing.T) {
	cases := map[string][]string{
		"*_create_orders.sql": {
			"CREATE TYPE order_item_status AS ENUM ('Pending', 'Processing', 'Shipped', 'Delivered', 'Cancelled')",
			"CONSTRAINT orders_stripe_session_id_key UNIQUE (stripe_session_id)",
			"CREATE TABLE IF NOT EXISTS order_items",
			"status order_item_status NOT NULL DEFAULT 'Pending'",
		},
		"*_create_users_and_products.sql": {
			"CHECK (stock_quantity >= 0)",
			"discount_price numeric(10,2) NULL",
			"stripe_customer_id text NULL",
		},
		"*_create_cart_items.sql": {
			"PRIMARY KEY (user_id, product_id)",
			"CHECK (quantity >= 1)",
		},
		"*_create_outbox_events.sql": {
			"WHERE published_at IS NULL",
		},
	}

	for pattern, checks := range cases {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob %s: %v", pattern, err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected one migration for %s, got %d", pattern, len(matches))
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read %s: %v", matches[0], err)
		}
		for _, sub := range checks {
			if !strings.Contains(string(data), sub) {
				t.Errorf("%s missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_no_down.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected missing down section to fail")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	if got := migrate.DialectFor("SQLite"); got != "sqlite3" {
		t.Fatalf("expected sqlite3, got %s", got)
	}
	if got := migrate.DialectFor(""); got != "postgres" {
		t.Fatalf("expected postgres default, got %s", got)
	}
}

func TestMaybeRunDevBuildsSQLiteSchema(t *testing.T) {
	cfg := &config.Config{
		App:          config.AppConfig{Env: "dev"},
		DB:           config.DBConfig{Driver: "sqlite"},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	conn := dbtest.OpenEmpty(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, db.NewFromConn(conn)); err != nil {
		t.Fatalf("auto-run: %v", err)
	}
	if !conn.Migrator().HasTable("outbox_events") {
		t.Fatal("expected outbox_events to exist")
	}
}
