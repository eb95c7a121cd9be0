package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zhangdroid/vanilla-extract/internal/config"
	"github.com/Zhangdroid/vanilla-extract/internal/deploy"
	"github.com/Zhangdroid/vanilla-extract/internal/errors"
)

func deployCmd() *cobra.Command {
	var (
		bucket string
		prefix string
		region string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload build artifacts to S3",
		Long: `Upload the build output directory to an S3 bucket.

Fingerprinted assets are uploaded with immutable cache headers; the
manifest revalidates on every request. Credentials come from the
ambient AWS configuration (environment, shared config, or instance
role).

Examples:
  vanilla-extract deploy --bucket=my-assets
  vanilla-extract deploy --bucket=my-assets --prefix=site/ --region=eu-west-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(bucket, prefix, region)
		},
	}

	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "S3 bucket (default from vanilla-extract.json)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix (default from vanilla-extract.json)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default from the SDK)")

	return cmd
}

func runDeploy(bucket, prefix, region string) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if bucket == "" {
		bucket = cfg.Deploy.Bucket
	}
	if prefix == "" {
		prefix = cfg.Deploy.Prefix
	}
	if region == "" {
		region = cfg.Deploy.Region
	}
	if bucket == "" {
		return errors.New("E501").
			WithDetail("no bucket configured").
			WithSuggestion("Pass --bucket or set deploy.bucket in vanilla-extract.json")
	}

	outputDir := cfg.OutputPath()
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		return errors.New("E501").
			WithDetail("no build output at " + outputDir).
			WithSuggestion("Run 'vanilla-extract build' first")
	}

	ctx := context.Background()
	client, err := deploy.NewClient(ctx, region)
	if err != nil {
		return err
	}

	uploader := deploy.New(client, deploy.Options{
		Bucket:     bucket,
		Prefix:     prefix,
		OnProgress: func(key string) { info("uploaded %s", key) },
	})

	res, err := uploader.UploadDir(ctx, outputDir)
	if err != nil {
		return err
	}

	success("Uploaded %d objects (%d bytes) to s3://%s/%s", res.Uploaded, res.Bytes, bucket, prefix)
	return nil
}
