package out

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"retort/internal/modules/report/domain"
	reportout "retort/internal/modules/report/port/out"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3SinkConfig struct {
	Bucket   string
	Region   string
	Endpoint string // MinIO, LocalStack
}

// S3Sink archives artifacts in a bucket.
type S3Sink struct {
	client objectPutter
	bucket string
}

var _ reportout.Sink = (*S3Sink)(nil)

func NewS3Sink(ctx context.Context, cfg S3SinkConfig) (*S3Sink, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket}, nil
}

// NewS3SinkWithClient uses an existing client.
func NewS3SinkWithClient(client objectPutter, bucket string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket}
}

func (s *S3Sink) Put(ctx context.Context, key string, artifact domain.Artifact) (string, error) {
	sum := sha256.Sum256(artifact.Body)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(artifact.Body),
		ContentType: aws.String(artifact.ContentType),
		Metadata: map[string]string{
			"sha256": hex.EncodeToString(sum[:]),
			"format": artifact.Format,
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
