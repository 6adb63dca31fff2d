package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver stores a rendered export and returns the key it was stored under.
type Archiver interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// S3Config configures the S3 archiver. Static keys are optional; without them
// the default AWS credential chain applies.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string // S3-compatible endpoint, e.g. MinIO
	AccessKeyID     string
	SecretAccessKey string
}

type s3Archiver struct {
	cfg    S3Config
	client *s3.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewS3Archiver creates an archiver that writes exports under Prefix/YYYY/MM/.
func NewS3Archiver(ctx context.Context, cfg S3Config, logger *slog.Logger) (Archiver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 archiver: bucket is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Archiver{cfg: cfg, client: client, logger: logger, now: time.Now}, nil
}

func (a *s3Archiver) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	now := a.now().UTC()
	key := path.Join(a.cfg.Prefix, now.Format("2006"), now.Format("01"), fmt.Sprintf("%d-%s", now.Unix(), name))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	a.logger.Info("export.archive.ok", "bucket", a.cfg.Bucket, "key", key, "bytes", len(data))
	return key, nil
}
