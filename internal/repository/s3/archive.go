// Package s3 archives export files to an S3-compatible bucket (AWS S3 or MinIO).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/config"
)

// objectPutter is the subset of *s3.Client the archive calls.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive uploads export files under a key prefix of one bucket.
type Archive struct {
	client objectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// New builds an archive from the export settings, resolving credentials through the
// default AWS chain.
func New(ctx context.Context, cfg config.ExportConfig, logger *zap.Logger) (*Archive, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3PathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	return newArchive(client, cfg.S3Bucket, cfg.S3Prefix, logger), nil
}

func newArchive(client objectPutter, bucket, prefix string, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: logger}
}

// Bucket returns the target bucket name.
func (a *Archive) Bucket() string { return a.bucket }

// Upload stores body as name under the prefix and returns the object key.
func (a *Archive) Upload(ctx context.Context, name, contentType string, body []byte) (string, error) {
	key := path.Join(a.prefix, name)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := a.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload %s to s3://%s: %w", key, a.bucket, err)
	}
	a.logger.Info("export archived", zap.String("bucket", a.bucket), zap.String("key", key), zap.Int("bytes", len(body)))
	return key, nil
}
