package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
warehouse:
  type: postgres
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  database: analytics

duckdb:
  directory: /tmp/mirror
  database_path: main.duckdb

extract:
  row_limit: 500
  batch_size: 100
  verify: true

manifest_path: dbt/target/manifest.json

logging:
  level: debug
  format: json
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Warehouse.Type != TypePostgres {
		t.Errorf("expected warehouse type 'postgres', got %s", cfg.Warehouse.Type)
	}
	if cfg.Warehouse.Host != "localhost" {
		t.Errorf("expected warehouse host 'localhost', got %s", cfg.Warehouse.Host)
	}
	if cfg.Warehouse.Port != 5432 {
		t.Errorf("expected warehouse port 5432, got %d", cfg.Warehouse.Port)
	}
	if cfg.DuckDB.Directory != "/tmp/mirror" {
		t.Errorf("expected duckdb directory '/tmp/mirror', got %s", cfg.DuckDB.Directory)
	}
	if cfg.DuckDB.DatabasePath != "main.duckdb" {
		t.Errorf("expected duckdb database_path 'main.duckdb', got %s", cfg.DuckDB.DatabasePath)
	}
	if cfg.Extract.RowLimit != 500 {
		t.Errorf("expected row_limit 500, got %d", cfg.Extract.RowLimit)
	}
	if cfg.Extract.BatchSize != 100 {
		t.Errorf("expected batch_size 100, got %d", cfg.Extract.BatchSize)
	}
	if !cfg.Extract.Verify {
		t.Error("expected verify to be enabled")
	}
	if cfg.ManifestPath != "dbt/target/manifest.json" {
		t.Errorf("expected manifest_path 'dbt/target/manifest.json', got %s", cfg.ManifestPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoadKeepsDefaultsForMissingSections(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.yaml")

	if err := os.WriteFile(configPath, []byte("extract:\n  row_limit: 25\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Extract.RowLimit != 25 {
		t.Errorf("expected row_limit 25, got %d", cfg.Extract.RowLimit)
	}
	if cfg.Extract.BatchSize != 10000 {
		t.Errorf("expected default batch_size 10000, got %d", cfg.Extract.BatchSize)
	}
	if cfg.DuckDB.DatabasePath != "warehouse_mirror.duckdb" {
		t.Errorf("expected default database_path, got %s", cfg.DuckDB.DatabasePath)
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	t.Setenv("TEST_WH_HOST", "env-host")
	t.Setenv("TEST_WH_USER", "env-user")
	t.Setenv("TEST_WH_PASS", "env-pass")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-env.yaml")

	configContent := `
warehouse:
  type: mysql
  host: ${TEST_WH_HOST}
  user: $TEST_WH_USER
  password: ${TEST_WH_PASS}
  database: ${TEST_WH_UNSET}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Warehouse.Host != "env-host" {
		t.Errorf("expected host 'env-host', got %s", cfg.Warehouse.Host)
	}
	if cfg.Warehouse.User != "env-user" {
		t.Errorf("expected user 'env-user', got %s", cfg.Warehouse.User)
	}
	if cfg.Warehouse.Password != "env-pass" {
		t.Errorf("expected password 'env-pass', got %s", cfg.Warehouse.Password)
	}
	if cfg.Warehouse.Database != "${TEST_WH_UNSET}" {
		t.Errorf("expected unset var to be left as-is, got %s", cfg.Warehouse.Database)
	}
}

func TestLoadNoPathUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load default config: %v", err)
	}
	if cfg.Extract.RowLimit != 10000 {
		t.Errorf("expected default row_limit, got %d", cfg.Extract.RowLimit)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides(Overrides{
		ProfilesDir:  "/etc/dbt",
		ManifestPath: "other/manifest.json",
		LogLevel:     "debug",
		LogFormat:    "json",
		RowLimit:     5,
		BatchSize:    2,
	})

	if cfg.Warehouse.ProfilesDir != "/etc/dbt" {
		t.Errorf("expected profiles dir '/etc/dbt', got %s", cfg.Warehouse.ProfilesDir)
	}
	if cfg.ManifestPath != "other/manifest.json" {
		t.Errorf("expected manifest override, got %s", cfg.ManifestPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug' after override, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json' after override, got %s", cfg.Logging.Format)
	}
	if cfg.Extract.RowLimit != 5 {
		t.Errorf("expected row limit 5 after override, got %d", cfg.Extract.RowLimit)
	}
	if cfg.Extract.BatchSize != 2 {
		t.Errorf("expected batch size 2 after override, got %d", cfg.Extract.BatchSize)
	}
}

func TestApplyOverridesZeroValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "warn", Format: "json"},
		Extract: ExtractConfig{RowLimit: 20, BatchSize: 10},
	}

	cfg.ApplyOverrides(Overrides{})

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level 'warn' to be preserved, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json' to be preserved, got %s", cfg.Logging.Format)
	}
	if cfg.Extract.RowLimit != 20 {
		t.Errorf("expected row limit 20 to be preserved, got %d", cfg.Extract.RowLimit)
	}
	if cfg.Extract.BatchSize != 10 {
		t.Errorf("expected batch size 10 to be preserved, got %d", cfg.Extract.BatchSize)
	}
}

func TestApplyOverridesProfileDropsInlineWarehouse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Warehouse = WarehouseConfig{
		ProfilesDir: "/etc/dbt",
		Type:        TypePostgres,
		Host:        "inline-host",
		User:        "inline",
		Password:    "pw",
	}

	cfg.ApplyOverrides(Overrides{Profile: "jaffle_shop", Target: "prod"})

	if cfg.Warehouse.HasInlineWarehouse() {
		t.Error("expected inline warehouse settings to be discarded")
	}
	if cfg.Warehouse.ProfileName != "jaffle_shop" || cfg.Warehouse.Target != "prod" {
		t.Errorf("unexpected selection %+v", cfg.Warehouse)
	}
	if cfg.Warehouse.ProfilesDir != "/etc/dbt" {
		t.Errorf("expected profiles dir to be kept, got %s", cfg.Warehouse.ProfilesDir)
	}
}

func TestResolveWarehouseInline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Warehouse = WarehouseConfig{Type: TypeMySQL, Host: "db", User: "u", Password: "p"}

	if err := cfg.ResolveWarehouse(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Warehouse.Host != "db" {
		t.Errorf("expected inline host to be kept, got %s", cfg.Warehouse.Host)
	}
}

func TestResolveWarehouseInlineWithoutAuth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Warehouse = WarehouseConfig{Type: TypeMySQL, Host: "db", User: "u"}

	err := cfg.ResolveWarehouse()
	if !errors.Is(err, ErrNoAuthMethod) {
		t.Errorf("expected ErrNoAuthMethod, got %v", err)
	}
}

func TestLoadResolvedFromProfile(t *testing.T) {
	profilesDir := t.TempDir()
	writeProfiles(t, profilesDir, `
warehouse:
  target: dev
  outputs:
    dev:
      type: postgres
      host: pg.internal
      user: dbt
      pass: secret
      dbname: analytics
      schema: public
`)

	t.Chdir(t.TempDir())
	cfg, err := LoadResolved("", Overrides{ProfilesDir: profilesDir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Warehouse.Host != "pg.internal" {
		t.Errorf("expected host from profile, got %s", cfg.Warehouse.Host)
	}
	if cfg.Warehouse.ProfilesDir != profilesDir {
		t.Errorf("expected profiles dir to be kept, got %s", cfg.Warehouse.ProfilesDir)
	}
	if cfg.Warehouse.ProfileName != "warehouse" || cfg.Warehouse.Target != "dev" {
		t.Errorf("unexpected profile selection %s/%s", cfg.Warehouse.ProfileName, cfg.Warehouse.Target)
	}
}

func TestLoadResolvedValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	content := `
warehouse:
  type: postgres
  user: u
  password: p
extract:
  batch_size: 0
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadResolved(configPath, Overrides{})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if len(verrs) != 2 {
		t.Errorf("expected 2 validation errors (host, batch_size), got %d: %v", len(verrs), verrs)
	}
}
