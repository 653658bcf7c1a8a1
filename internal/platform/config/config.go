package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	envPrefix = "ORDERBOT_"

	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultEventRate      = 30
	defaultEventWindow    = time.Minute
	defaultEnvironment    = "local"
	defaultCounterKey     = "pedidos"
	defaultCounterSheet   = "Contadores"
	defaultProductPage    = 8
	defaultCartPage       = 5
	defaultClientPage     = 10
	defaultMaxQuantity    = 999
	defaultNoteMaxLength  = 500
	defaultSearchMinLen   = 2
	defaultSessionTTL     = 24 * time.Hour
	defaultReplayInterval = time.Minute
	defaultSecretFallback = ".secrets.local"
)

// Store backends.
const (
	BackendSheets    = "sheets"
	BackendSQL       = "sql"
	BackendMemory    = "memory"
	BackendStore     = "store"
	BackendFirestore = "firestore"
)

// Catalog fallback modes.
const (
	FallbackSample = "sample"
	FallbackEmpty  = "empty"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Store       StoreConfig
	Sheets      SheetsConfig
	SQL         SQLConfig
	Counter     CounterConfig
	Firestore   FirestoreConfig
	Catalog     CatalogConfig
	Limits      LimitsConfig
	Sessions    SessionConfig
	Outbox      OutboxConfig
	PubSub      PubSubConfig
	Secrets     SecretsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// EventRateLimit caps inbound events per user within EventRateWindow. Zero disables the limit.
	EventRateLimit  int
	EventRateWindow time.Duration
}

// StoreConfig selects the tabular system of record.
type StoreConfig struct {
	Backend string
}

// SheetsConfig points at the spreadsheet acting as system of record.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

// SQLConfig configures the relational substitute.
type SQLConfig struct {
	DSN string
}

// CounterConfig controls where order sequence values come from.
type CounterConfig struct {
	Backend string
	Key     string
	Sheet   string
}

// FirestoreConfig stores database parameters for the Firestore counter.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// CatalogConfig maps entities to table names and selects the outage behaviour.
type CatalogConfig struct {
	Fallback     string
	FallbackFile string
	Clients      string
	Categories   string
	Products     string
	Orders       string
	OrderLines   string
}

// LimitsConfig bounds dialog listings and inputs.
type LimitsConfig struct {
	ProductPageSize int
	CartPageSize    int
	ClientPageSize  int
	MaxQuantity     int
	NoteMaxLength   int
	SearchMinLength int
}

// SessionConfig controls idle session expiry. A zero TTL keeps sessions until restart.
type SessionConfig struct {
	TTL time.Duration
}

// OutboxConfig configures the durable commit outbox. An empty Dir disables it.
type OutboxConfig struct {
	Dir            string
	ReplayInterval time.Duration
}

// PubSubConfig configures order event publishing. Empty values disable it.
type PubSubConfig struct {
	ProjectID string
	Topic     string
}

// SecretsConfig configures Secret Manager lookups.
type SecretsConfig struct {
	DefaultProjectID string
	FallbackFile     string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// EnvironmentValues returns the effective key/value environment map after applying the same precedence
// rules as Load (dotenv < OS env < explicit env map). The secrets fetcher is built from it before Load runs.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(dotEnvValues))
	for key, value := range dotEnvValues {
		values[key] = value
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[strings.TrimSpace(key)] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		key = envPrefix + key
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "ENVIRONMENT", defaultEnvironment)),
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "SERVER_PORT", defaultPort),
			ReadTimeout:     durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			EventRateLimit:  intWithDefault(lookup, "EVENT_RATE_LIMIT", defaultEventRate),
			EventRateWindow: durationWithDefault(lookup, "EVENT_RATE_WINDOW", defaultEventWindow),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(stringWithDefault(lookup, "STORE_BACKEND", BackendSheets)),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   stringWithDefault(lookup, "SHEETS_SPREADSHEET_ID", ""),
			CredentialsJSON: stringWithDefault(lookup, "SHEETS_CREDENTIALS_JSON", ""),
			CredentialsFile: stringWithDefault(lookup, "SHEETS_CREDENTIALS_FILE", ""),
		},
		SQL: SQLConfig{
			DSN: stringWithDefault(lookup, "SQL_DSN", ""),
		},
		Counter: CounterConfig{
			Backend: strings.ToLower(stringWithDefault(lookup, "COUNTER_BACKEND", BackendStore)),
			Key:     stringWithDefault(lookup, "COUNTER_KEY", defaultCounterKey),
			Sheet:   stringWithDefault(lookup, "COUNTER_SHEET", defaultCounterSheet),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		Catalog: CatalogConfig{
			Fallback:     strings.ToLower(stringWithDefault(lookup, "CATALOG_FALLBACK", FallbackSample)),
			FallbackFile: stringWithDefault(lookup, "CATALOG_FALLBACK_FILE", ""),
			Clients:      stringWithDefault(lookup, "SHEET_CLIENTS", "Clientes"),
			Categories:   stringWithDefault(lookup, "SHEET_CATEGORIES", "Categorias"),
			Products:     stringWithDefault(lookup, "SHEET_PRODUCTS", "Productos"),
			Orders:       stringWithDefault(lookup, "SHEET_ORDERS", "Pedidos"),
			OrderLines:   stringWithDefault(lookup, "SHEET_ORDER_LINES", "DetallePedidos"),
		},
		Limits: LimitsConfig{
			ProductPageSize: intWithDefault(lookup, "PAGE_SIZE_PRODUCTS", defaultProductPage),
			CartPageSize:    intWithDefault(lookup, "PAGE_SIZE_CART", defaultCartPage),
			ClientPageSize:  intWithDefault(lookup, "PAGE_SIZE_CLIENTS", defaultClientPage),
			MaxQuantity:     intWithDefault(lookup, "MAX_QUANTITY", defaultMaxQuantity),
			NoteMaxLength:   intWithDefault(lookup, "NOTE_MAX_LENGTH", defaultNoteMaxLength),
			SearchMinLength: intWithDefault(lookup, "SEARCH_MIN_LENGTH", defaultSearchMinLen),
		},
		Sessions: SessionConfig{
			TTL: durationWithDefault(lookup, "SESSION_TTL", defaultSessionTTL),
		},
		Outbox: OutboxConfig{
			Dir:            stringWithDefault(lookup, "OUTBOX_DIR", ""),
			ReplayInterval: durationWithDefault(lookup, "OUTBOX_REPLAY_INTERVAL", defaultReplayInterval),
		},
		PubSub: PubSubConfig{
			ProjectID: stringWithDefault(lookup, "PUBSUB_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "PUBSUB_TOPIC", ""),
		},
		Secrets: SecretsConfig{
			DefaultProjectID: stringWithDefault(lookup, "SECRET_DEFAULT_PROJECT_ID", ""),
			FallbackFile:     stringWithDefault(lookup, "SECRET_FALLBACK_FILE", defaultSecretFallback),
		},
	}

	// Pub/Sub shares the Firestore project unless set explicitly.
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	secretFields := []*string{
		&cfg.Sheets.CredentialsJSON,
		&cfg.SQL.DSN,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Table returns the configured table name for an entity name, falling back to the name itself.
func (c CatalogConfig) Table(entity string) string {
	switch entity {
	case "Clients":
		return c.Clients
	case "Categories":
		return c.Categories
	case "Products":
		return c.Products
	case "Orders":
		return c.Orders
	case "OrderLines":
		return c.OrderLines
	}
	return entity
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}

	switch cfg.Store.Backend {
	case BackendSheets:
		if strings.TrimSpace(cfg.Sheets.SpreadsheetID) == "" {
			missing = append(missing, "Sheets.SpreadsheetID")
		}
		if strings.TrimSpace(cfg.Sheets.CredentialsJSON) == "" && strings.TrimSpace(cfg.Sheets.CredentialsFile) == "" {
			missing = append(missing, "Sheets.Credentials")
		}
	case BackendSQL:
		if strings.TrimSpace(cfg.SQL.DSN) == "" {
			missing = append(missing, "SQL.DSN")
		}
	case BackendMemory:
	default:
		missing = append(missing, "Store.Backend")
	}

	switch cfg.Counter.Backend {
	case BackendStore, BackendMemory:
	case BackendFirestore:
		if strings.TrimSpace(cfg.Firestore.ProjectID) == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Counter.Backend")
	}
	if strings.TrimSpace(cfg.Counter.Key) == "" {
		missing = append(missing, "Counter.Key")
	}
	if cfg.Store.Backend == BackendSheets && cfg.Counter.Backend == BackendStore && strings.TrimSpace(cfg.Counter.Sheet) == "" {
		missing = append(missing, "Counter.Sheet")
	}

	switch cfg.Catalog.Fallback {
	case FallbackSample, FallbackEmpty:
	default:
		missing = append(missing, "Catalog.Fallback")
	}

	limits := []struct {
		name  string
		value int
	}{
		{"Limits.ProductPageSize", cfg.Limits.ProductPageSize},
		{"Limits.CartPageSize", cfg.Limits.CartPageSize},
		{"Limits.ClientPageSize", cfg.Limits.ClientPageSize},
		{"Limits.MaxQuantity", cfg.Limits.MaxQuantity},
		{"Limits.NoteMaxLength", cfg.Limits.NoteMaxLength},
		{"Limits.SearchMinLength", cfg.Limits.SearchMinLength},
	}
	for _, limit := range limits {
		if limit.value <= 0 {
			missing = append(missing, limit.name)
		}
	}
	if cfg.Server.EventRateLimit < 0 || (cfg.Server.EventRateLimit > 0 && cfg.Server.EventRateWindow <= 0) {
		missing = append(missing, "Server.EventRateWindow")
	}
	if cfg.Sessions.TTL < 0 {
		missing = append(missing, "Sessions.TTL")
	}
	if cfg.Outbox.ReplayInterval <= 0 {
		missing = append(missing, "Outbox.ReplayInterval")
	}
	if cfg.PubSub.Topic != "" && cfg.PubSub.ProjectID == "" {
		missing = append(missing, "PubSub.ProjectID")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}
