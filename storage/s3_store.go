package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/BaSui01/vidflow/batch"
)

// S3Store writes reports as JSON objects to <prefix><id>.json in a bucket.
// Works against AWS and S3-compatible servers such as MinIO.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	logger   *zap.Logger
}

// NewS3Store builds an S3 client from static settings.
func NewS3Store(config S3StoreConfig, logger *zap.Logger) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrInvalidInput)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	region := config.Region
	if region == "" {
		region = "us-east-1"
	}

	client := s3.NewFromConfig(aws.Config{Region: region}, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		if config.AccessKeyID != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")
		} else {
			o.Credentials = aws.AnonymousCredentials{}
		}
		o.UsePathStyle = config.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   config.Bucket,
		prefix:   config.Prefix,
		logger:   logger.With(zap.String("component", "s3_store")),
	}, nil
}

func (s *S3Store) key(id string) string {
	return s.prefix + id + ".json"
}

func (s *S3Store) location(key string) string {
	return "s3://" + path.Join(s.bucket, key)
}

// SaveReport uploads the report.
func (s *S3Store) SaveReport(ctx context.Context, report *batch.BatchReport) (string, error) {
	if err := validateReport(report); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	key := s.key(report.ID)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	return s.location(key), nil
}

// GetReport downloads a report by id.
func (s *S3Store) GetReport(ctx context.Context, id string) (*batch.BatchReport, error) {
	return s.fetch(ctx, s.key(id))
}

func (s *S3Store) fetch(ctx context.Context, key string) (*batch.BatchReport, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r batch.BatchReport
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// ListReports lists every report under the prefix and returns summaries
// newest first.
func (s *S3Store) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	var out []ReportSummary
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			r, err := s.fetch(ctx, key)
			if err != nil {
				s.logger.Warn("skipping unreadable report", zap.String("key", key), zap.Error(err))
				continue
			}
			out = append(out, summarize(r, s.location(key)))
		}
	}
	sortNewestFirst(out)
	return limitSummaries(out, limit), nil
}

// Close is a no-op; the SDK client holds no long-lived connections of its own.
func (s *S3Store) Close() error { return nil }

// Ping checks that the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
