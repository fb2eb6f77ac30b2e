package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lkld-IO/wp-s3-file-manager/config"
)

var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "s3fm",
	Short:   "Private file store backed by an S3-compatible bucket",
	Long: `s3fm keeps a local catalog of files stored in an S3-compatible bucket
and serves them through short-lived presigned redirect links. It signs
all bucket requests itself (AWS Signature V4) and needs no vendor SDK.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var configFiles []string
		if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
			configFiles = []string{configFile}
		}

		loaded, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		setupLogging(cfg.Log.Level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: S3FM_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: s3fm.db, env: S3FM_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("bucket", "", "bucket name (env: S3FM_STORAGE_BUCKET)")
	rootCmd.PersistentFlags().String("region", "", "bucket region (default: us-east-1, env: S3FM_STORAGE_REGION)")
	rootCmd.PersistentFlags().String("access-key", "", "access key id (env: S3FM_STORAGE_ACCESS_KEY)")
	rootCmd.PersistentFlags().String("secret-key", "", "secret key (env: S3FM_STORAGE_SECRET_KEY)")
	rootCmd.PersistentFlags().String("prefix", "", "object key prefix (env: S3FM_STORAGE_PREFIX)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
