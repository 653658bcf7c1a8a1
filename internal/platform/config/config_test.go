package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func load(t *testing.T, env map[string]string, opts ...Option) (Config, error) {
	t.Helper()
	base := []Option{WithEnvMap(env), WithoutSystemEnv(), WithEnvFile("")}
	return Load(context.Background(), append(base, opts...)...)
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"ORDERBOT_STORE_BACKEND": "memory",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Counter.Backend != BackendStore || cfg.Counter.Key != "pedidos" {
		t.Errorf("unexpected counter config: %+v", cfg.Counter)
	}
	if cfg.Catalog.Fallback != FallbackSample {
		t.Errorf("expected sample fallback, got %s", cfg.Catalog.Fallback)
	}
	if got := cfg.Catalog.Table("OrderLines"); got != "DetallePedidos" {
		t.Errorf("unexpected order lines table %q", got)
	}
	if got := cfg.Catalog.Table("Custom"); got != "Custom" {
		t.Errorf("unknown entities map to themselves, got %q", got)
	}
	want := LimitsConfig{ProductPageSize: 8, CartPageSize: 5, ClientPageSize: 10, MaxQuantity: 999, NoteMaxLength: 500, SearchMinLength: 2}
	if cfg.Limits != want {
		t.Errorf("unexpected limits %+v", cfg.Limits)
	}
	if cfg.Sessions.TTL != 24*time.Hour {
		t.Errorf("unexpected session ttl %s", cfg.Sessions.TTL)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected local environment, got %s", cfg.Environment)
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	env := map[string]string{
		"ORDERBOT_STORE_BACKEND":           "sheets",
		"ORDERBOT_SHEETS_SPREADSHEET_ID":   "sheet-123",
		"ORDERBOT_SHEETS_CREDENTIALS_JSON": "sm://orderbot/sheets-sa",
		"ORDERBOT_SQL_DSN":                 "secret://orderbot/dsn",
	}
	var refs []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		refs = append(refs, ref)
		return "resolved:" + ref, nil
	})

	cfg, err := load(t, env, WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sheets.CredentialsJSON != "resolved:secret://orderbot/sheets-sa" {
		t.Fatalf("unexpected credentials %q", cfg.Sheets.CredentialsJSON)
	}
	if cfg.SQL.DSN != "resolved:secret://orderbot/dsn" {
		t.Fatalf("unexpected dsn %q", cfg.SQL.DSN)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 secret lookups, got %v", refs)
	}
}

func TestLoadSecretResolverFailure(t *testing.T) {
	env := map[string]string{
		"ORDERBOT_STORE_BACKEND": "sql",
		"ORDERBOT_SQL_DSN":       "sm://orderbot/dsn",
	}
	_, err := load(t, env)
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if secretErr.Ref != "secret://orderbot/dsn" {
		t.Fatalf("unexpected ref %q", secretErr.Ref)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name   string
		env    map[string]string
		fields []string
	}{
		{
			name:   "sheets without spreadsheet",
			env:    map[string]string{},
			fields: []string{"Sheets.SpreadsheetID", "Sheets.Credentials"},
		},
		{
			name:   "sql without dsn",
			env:    map[string]string{"ORDERBOT_STORE_BACKEND": "sql"},
			fields: []string{"SQL.DSN"},
		},
		{
			name:   "firestore counter without project",
			env:    map[string]string{"ORDERBOT_STORE_BACKEND": "memory", "ORDERBOT_COUNTER_BACKEND": "firestore"},
			fields: []string{"Firestore.ProjectID"},
		},
		{
			name:   "unknown backends",
			env:    map[string]string{"ORDERBOT_STORE_BACKEND": "mongo", "ORDERBOT_COUNTER_BACKEND": "redis", "ORDERBOT_CATALOG_FALLBACK": "cache"},
			fields: []string{"Store.Backend", "Counter.Backend", "Catalog.Fallback"},
		},
		{
			name:   "non positive limits",
			env:    map[string]string{"ORDERBOT_STORE_BACKEND": "memory", "ORDERBOT_PAGE_SIZE_PRODUCTS": "0", "ORDERBOT_MAX_QUANTITY": "-1"},
			fields: []string{"Limits.ProductPageSize", "Limits.MaxQuantity"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, tc.env)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			fields := validationErr.Fields()
			for _, field := range tc.fields {
				if !slices.Contains(fields, field) {
					t.Fatalf("expected %s in %v", field, fields)
				}
			}
		})
	}
}

func TestLoadReadsDotEnvWithLowestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport ORDERBOT_STORE_BACKEND=memory\nORDERBOT_SERVER_PORT=\"9000\"\nORDERBOT_PAGE_SIZE_CART=7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"ORDERBOT_SERVER_PORT": "9100"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Fatalf("expected memory backend from dotenv, got %s", cfg.Store.Backend)
	}
	if cfg.Server.Port != "9100" {
		t.Fatalf("explicit env map must win over dotenv, got %s", cfg.Server.Port)
	}
	if cfg.Limits.CartPageSize != 7 {
		t.Fatalf("expected cart page size 7, got %d", cfg.Limits.CartPageSize)
	}
}

func TestEnvironmentValuesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("A=dotenv\nB=dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	values, err := EnvironmentValues(WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"B": "map"}))
	if err != nil {
		t.Fatalf("EnvironmentValues: %v", err)
	}
	if values["A"] != "dotenv" || values["B"] != "map" {
		t.Fatalf("unexpected values %v", values)
	}
}
