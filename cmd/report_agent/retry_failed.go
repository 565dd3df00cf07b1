package main

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/session-report/internal/config"
)

var retryFailedCmd = &cobra.Command{
	Use:   "retry-failed",
	Short: "Re-run report generation for failed sessions",
	Long: `List failed generation records, oldest first, and run generation for each again.

Failed records are never retried automatically; this command is the explicit way to do it.`,
	RunE: runRetryFailed,
}

var (
	retryLimit       int
	retryConcurrency int
)

func init() {
	retryFailedCmd.Flags().IntVar(&retryLimit, "limit", 0, "Maximum number of failed records to retry (0 = all)")
	retryFailedCmd.Flags().IntVar(&retryConcurrency, "concurrency", 2, "Number of generations to run at once")

	rootCmd.AddCommand(retryFailedCmd)
}

func runRetryFailed(cmd *cobra.Command, _ []string) error {
	if retryConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Kind == config.StoreMemory {
		return fmt.Errorf("retry-failed requires a persistent store (postgres or sqlite)")
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.close()

	records, err := st.failed.ListFailed(ctx, retryLimit)
	if err != nil {
		return fmt.Errorf("failed to list failed records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No failed reports to retry")
		return nil
	}

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer gen.Close()

	service := newService(st, gen)
	defer service.Close()

	var failures atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(retryConcurrency)
	for _, rec := range records {
		g.Go(func() error {
			if _, err := service.Generate(gctx, rec.SessionID, rec.OwnerID); err != nil {
				log.Printf("[retry] session %s failed again: %v", rec.SessionID, err)
				failures.Add(1)
				return nil
			}
			log.Printf("[retry] session %s ready", rec.SessionID)
			return nil
		})
	}
	_ = g.Wait()

	failed := int(failures.Load())
	fmt.Fprintf(cmd.OutOrStdout(), "Retried %d report(s): %d ready, %d failed\n", len(records), len(records)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d retries failed", failed, len(records))
	}
	return nil
}
