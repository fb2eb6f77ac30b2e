package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
	"github.com/Lkld-IO/wp-s3-file-manager/database"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the catalog against the bucket",
	Long: `Run one reconciliation pass: catalog records whose backing object is
gone are removed, and objects that appeared in the bucket out-of-band get
new catalog records.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), s3fm.MetadataTimeout)
	defer cancel()

	catalog, cleanup, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer cleanup()

	client := s3fm.NewClient(cfg.Storage.Credentials())
	reconciler := s3fm.NewReconciler(client, catalog, slog.Default())

	summary, err := reconciler.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("sync complete: %d added, %d removed, %d remote objects\n",
		summary.Added, summary.Removed, summary.RemoteObjects)
	return nil
}
