// Package deploy uploads build artifacts to S3.
package deploy

import (
	"bytes"
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/Zhangdroid/vanilla-extract/internal/errors"
)

// ObjectPutter is the slice of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures the uploader.
type Options struct {
	// Bucket is the S3 bucket receiving the artifacts.
	Bucket string

	// Prefix is the key prefix inside the bucket.
	Prefix string

	// Concurrency bounds parallel uploads. Defaults to 8.
	Concurrency int

	// OnProgress is called with each uploaded key.
	OnProgress func(key string)
}

// Result summarizes an upload.
type Result struct {
	// Uploaded is the number of objects written.
	Uploaded int

	// Bytes is the total payload size.
	Bytes int64
}

// Uploader pushes a directory tree to S3.
type Uploader struct {
	client ObjectPutter
	opts   Options
}

// NewClient builds an S3 client from the ambient AWS configuration.
func NewClient(ctx context.Context, region string) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.New("E502").Wrap(err)
	}
	return s3.NewFromConfig(cfg), nil
}

// New creates an uploader.
func New(client ObjectPutter, opts Options) *Uploader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Uploader{client: client, opts: opts}
}

// UploadDir uploads every file under dir, keyed by its slash-relative
// path under the configured prefix.
func (u *Uploader) UploadDir(ctx context.Context, dir string) (*Result, error) {
	var files []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New("E501").Wrap(err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.Concurrency)

	var uploaded int64
	var bytes64 int64
	for _, file := range files {
		file := file
		g.Go(func() error {
			n, err := u.uploadFile(ctx, dir, file)
			if err != nil {
				return err
			}
			atomic.AddInt64(&uploaded, 1)
			atomic.AddInt64(&bytes64, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{Uploaded: int(uploaded), Bytes: bytes64}, nil
}

func (u *Uploader) uploadFile(ctx context.Context, dir, file string) (int64, error) {
	rel, err := filepath.Rel(dir, file)
	if err != nil {
		return 0, errors.New("E501").Wrap(err)
	}
	key := u.opts.Prefix + filepath.ToSlash(rel)

	data, err := os.ReadFile(file)
	if err != nil {
		return 0, errors.New("E501").
			WithDetail("cannot read " + file).Wrap(err)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.opts.Bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentTypeFor(file)),
		CacheControl: aws.String(cacheControlFor(rel)),
	})
	if err != nil {
		return 0, errors.New("E501").
			WithDetail("key: " + key).Wrap(err)
	}

	if u.opts.OnProgress != nil {
		u.opts.OnProgress(key)
	}
	return int64(len(data)), nil
}

func contentTypeFor(file string) string {
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// cacheControlFor keeps the manifest revalidating while fingerprinted
// assets cache forever.
func cacheControlFor(rel string) string {
	name := filepath.Base(rel)
	if name == "manifest.json" || strings.HasSuffix(name, ".html") {
		return "no-cache"
	}
	return "public, max-age=31536000, immutable"
}
