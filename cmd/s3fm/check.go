package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify bucket credentials and connectivity",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), s3fm.MetadataTimeout)
	defer cancel()

	client := s3fm.NewClient(cfg.Storage.Credentials())
	if err := client.TestConnectivity(ctx); err != nil {
		return fmt.Errorf("check: %w", err)
	}

	fmt.Printf("bucket %q is reachable in region %q\n", cfg.Storage.Bucket, cfg.Storage.Region)
	return nil
}
