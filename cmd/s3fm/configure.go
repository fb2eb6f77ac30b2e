package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
)

var configureOutput string

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively write a config file",
	Long: `Interactively write a config file.

You will be prompted for the bucket credentials. The connection is tested
before the file is written; pass --skip-check to write anyway.`,
	RunE: runConfigure,
}

var configureSkipCheck bool

func init() {
	configureCmd.Flags().StringVarP(&configureOutput, "output", "o", "config.yaml", "config file to write")
	configureCmd.Flags().BoolVar(&configureSkipCheck, "skip-check", false, "skip the connectivity check before writing")

	rootCmd.AddCommand(configureCmd)
}

type storageFileConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
}

type fileConfig struct {
	Storage storageFileConfig `yaml:"storage"`
}

func runConfigure(cmd *cobra.Command, args []string) error {
	notEmpty := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("value cannot be empty")
		}
		return nil
	}

	accessKey, err := (&promptui.Prompt{Label: "Access key id", Validate: notEmpty}).Run()
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	secretKey, err := (&promptui.Prompt{Label: "Secret key", Mask: '*', Validate: notEmpty}).Run()
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	region, err := (&promptui.Prompt{Label: "Region", Default: s3fm.DefaultRegion}).Run()
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	bucket, err := (&promptui.Prompt{Label: "Bucket", Validate: notEmpty}).Run()
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	prefix, err := (&promptui.Prompt{Label: "Key prefix (optional)"}).Run()
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	creds := s3fm.Credentials{
		AccessKey: strings.TrimSpace(accessKey),
		SecretKey: strings.TrimSpace(secretKey),
		Region:    strings.TrimSpace(region),
		Bucket:    strings.TrimSpace(bucket),
		Prefix:    strings.TrimSpace(prefix),
	}

	if !configureSkipCheck {
		ctx, cancel := context.WithTimeout(cmd.Context(), s3fm.MetadataTimeout)
		defer cancel()

		if err := s3fm.NewClient(creds).TestConnectivity(ctx); err != nil {
			return fmt.Errorf("configure: connectivity check failed: %w", err)
		}
		fmt.Println("connectivity check passed")
	}

	out, err := yaml.Marshal(fileConfig{Storage: storageFileConfig{
		AccessKey: creds.AccessKey,
		SecretKey: creds.SecretKey,
		Region:    creds.Region,
		Bucket:    creds.Bucket,
		Prefix:    creds.Prefix,
	}})
	if err != nil {
		return fmt.Errorf("configure: marshal config: %w", err)
	}

	if err := os.WriteFile(configureOutput, out, 0o600); err != nil {
		return fmt.Errorf("configure: write %s: %w", configureOutput, err)
	}

	fmt.Printf("wrote %s\n", configureOutput)
	return nil
}
