// Package archive keeps a copy of every raw upload in S3-compatible
// object storage. The archive is forensic: when a batch ends in error
// the original file can be re-run, and disputes over what a carrier
// export contained are settled from the stored bytes, not from memory.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mvieira/scanledger/internal/config"
	"github.com/mvieira/scanledger/internal/logger"
)

// Archiver writes raw upload files to a bucket. A nil *Archiver is a
// valid no-op archiver, so callers never branch on whether archiving
// is configured.
type Archiver struct {
	client *s3.Client
	bucket string
}

// New builds an Archiver from config. Returns (nil, nil) when
// archiving is disabled.
func New(cfg *config.ArchiveConfig) (*Archiver, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			scheme := "http"
			if cfg.UseSSL {
				scheme = "https"
			}
			o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", scheme, normalizeEndpoint(cfg.Endpoint)))
			o.UsePathStyle = true
		}
	})

	return &Archiver{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the archive bucket if it does not exist.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	if a == nil {
		return nil
	}
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Store archives one raw upload under uploads/{batchID}/{filename}.
// Archiving is best effort: failures are logged and swallowed so a
// dead bucket never fails an ingest run.
func (a *Archiver) Store(ctx context.Context, batchID, filename string, content []byte) {
	if a == nil {
		return
	}
	key := path.Join("uploads", batchID, path.Base(filename))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(contentTypeFor(filename)),
	})
	if err != nil {
		logger.CtxWarn(ctx, "Failed to archive upload %s: %v", key, err)
		return
	}
	logger.CtxDebug(ctx, "Archived upload to %s", key)
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return strings.TrimSuffix(endpoint, "/")
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
