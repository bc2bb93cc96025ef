package postgres

import (
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0002_create_carts.up.sql":      {Data: []byte("CREATE TABLE carts (id BIGSERIAL PRIMARY KEY);")},
		"sql/migrations/0002_create_carts.down.sql":    {Data: []byte("DROP TABLE carts;")},
		"sql/migrations/0001_create_products.up.sql":   {Data: []byte("CREATE TABLE products (id BIGSERIAL PRIMARY KEY);")},
		"sql/migrations/0001_create_products.down.sql": {Data: []byte("DROP TABLE products;")},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "create_products" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].Name != "create_carts" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
	if migrations[0].UpSQL == "" || migrations[0].DownSQL == "" {
		t.Fatalf("migration bodies must be loaded")
	}
}

func TestLoadMigrationsFromFSMissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0001_create_products.up.sql": {Data: []byte("CREATE TABLE products (id BIGSERIAL PRIMARY KEY);")},
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for migration without down file")
	}
}

func TestLoadMigrationsFromFSInvalidName(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/create_products.up.sql":   {Data: []byte("SELECT 1;")},
		"sql/migrations/create_products.down.sql": {Data: []byte("SELECT 1;")},
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for invalid migration file name")
	}
}

func TestLoadMigrationsFromFSEmptyBody(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/migrations/0001_create_products.up.sql":   {Data: []byte("   \n")},
		"sql/migrations/0001_create_products.down.sql": {Data: []byte("DROP TABLE products;")},
	}

	if _, err := loadMigrationsFromFS(fsys); err == nil {
		t.Fatal("expected error for empty migration body")
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations failed to load: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}

	prev := int64(0)
	for _, m := range migrations {
		if m.Version <= prev {
			t.Fatalf("migration versions must be strictly increasing, got %d after %d", m.Version, prev)
		}
		prev = m.Version
	}
}
