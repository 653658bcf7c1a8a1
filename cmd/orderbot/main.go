package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SIMPLIKARG/TESTING/internal/di"
	"github.com/SIMPLIKARG/TESTING/internal/platform/config"
	"github.com/SIMPLIKARG/TESTING/internal/platform/observability"
	"github.com/SIMPLIKARG/TESTING/internal/platform/secrets"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "orderbot: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	envFile  string
	logLevel string
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "orderbot",
		Short:         "Conversational order taking for the distributor catalogue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := observability.NewLogger(a.logLevel)
			if err != nil {
				return fmt.Errorf("initialise logger: %w", err)
			}
			a.logger = logger.Named("orderbot")
			cmd.SetContext(observability.WithLogger(cmd.Context(), a.logger))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file with local ORDERBOT_ overrides")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	root.AddCommand(a.serveCmd(), a.outboxCmd(), a.counterCmd(), a.catalogCmd())
	root.SetContext(context.Background())
	return root
}

func (a *app) loadConfig(ctx context.Context) (config.Config, error) {
	envValues, err := config.EnvironmentValues(config.WithEnvFile(a.envFile))
	if err != nil {
		return config.Config{}, fmt.Errorf("read environment: %w", err)
	}

	fetcher, err := newSecretFetcher(ctx, a.logger, envValues)
	if err != nil {
		return config.Config{}, fmt.Errorf("initialise secret fetcher: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			a.logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	return config.Load(ctx,
		config.WithEnvFile(a.envFile),
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
	)
}

func (a *app) container(ctx context.Context) (*di.Container, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store.Backend),
		zap.String("counter", cfg.Counter.Backend),
	)
	return di.NewContainer(ctx, cfg, di.WithLogger(a.logger))
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}
	fallbackPath := lookup("ORDERBOT_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if project := lookup("ORDERBOT_SECRET_DEFAULT_PROJECT_ID"); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
