// Package cloud optionally publishes exported artifacts to S3-compatible
// object storage.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Publisher uploads a finished artifact and returns where it now lives.
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, path string) (string, error)
}

// Options configures an S3Publisher. An empty Bucket disables publishing.
type Options struct {
	Bucket    string
	Endpoint  string // e.g. an R2 or MinIO URL; empty uses AWS
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

type S3Publisher struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Publisher builds a client from static credentials when given, else
// from the default AWS credential chain.
func NewS3Publisher(ctx context.Context, opts Options, logger *slog.Logger) (*S3Publisher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Publisher{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		logger: logger,
	}, nil
}

func (p *S3Publisher) Enabled() bool { return p.bucket != "" }

// Key returns the object key for an artifact path.
func (p *S3Publisher) Key(path string) string {
	if p.prefix == "" {
		return filepath.Base(path)
	}
	return p.prefix + "/" + filepath.Base(path)
}

func (p *S3Publisher) Publish(ctx context.Context, path string) (string, error) {
	if !p.Enabled() {
		return "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat artifact: %w", err)
	}

	key := p.Key(path)
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	p.logger.Info("publishing artifact", "bucket", p.bucket, "key", key, "bytes", info.Size())

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", p.bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

// Disabled is the publisher used when no bucket is configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) Publish(context.Context, string) (string, error) { return "", nil }
