package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SIMPLIKARG/TESTING/internal/catalog"
	"github.com/SIMPLIKARG/TESTING/internal/di"
	"github.com/SIMPLIKARG/TESTING/internal/domain"
)

// withContainer builds the container for a one-shot command and closes it afterwards.
func (a *app) withContainer(ctx context.Context, fn func(*di.Container) error) (err error) {
	c, err := a.container(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := c.Close(closeCtx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

func (a *app) outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay pending order commits",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "replay",
		Short: "Replay every eligible pending commit once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				report, err := c.Relay.Replay(cmd.Context())
				if err != nil {
					return fmt.Errorf("outbox replay: %w", err)
				}
				a.logger.Info("outbox replay finished",
					zap.Int("recovered", report.Recovered),
					zap.Int("retrying", report.Retrying),
					zap.Int("abandoned", report.Abandoned),
					zap.Int("skipped", report.Skipped),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "recovered=%d retrying=%d abandoned=%d skipped=%d\n",
					report.Recovered, report.Retrying, report.Abandoned, report.Skipped)
				return nil
			})
		},
	})
	return cmd
}

func (a *app) counterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Operate the order id counter",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "next",
		Short: "Reserve and print the next order id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				id, err := c.Sequence.NextStrict(cmd.Context())
				if err != nil {
					return fmt.Errorf("counter next: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	})
	return cmd
}

func (a *app) catalogCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage master data tables",
	}
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Replace clients, categories and products with a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := loadDataset(file)
			if err != nil {
				return err
			}
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				started := time.Now()
				if err := c.Catalog.Seed(cmd.Context(), ds); err != nil {
					return fmt.Errorf("catalog seed: %w", err)
				}
				a.logger.Info("catalog seeded",
					zap.Int("clients", len(ds[domain.EntityClients])),
					zap.Int("categories", len(ds[domain.EntityCategories])),
					zap.Int("products", len(ds[domain.EntityProducts])),
					zap.Duration("elapsed", time.Since(started)),
				)
				return nil
			})
		},
	}
	seed.Flags().StringVar(&file, "file", "", "YAML dataset to load instead of the built-in sample")
	cmd.AddCommand(seed)
	return cmd
}

func loadDataset(path string) (catalog.Dataset, error) {
	if path == "" {
		return catalog.DefaultDataset()
	}
	return catalog.LoadDatasetFile(path)
}
