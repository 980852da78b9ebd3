package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds the configuration for S3 publishing.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Storage wraps LocalStorage and adds S3 publishing.
// It uses LocalStorage for staging and S3 for final delivery.
type S3Storage struct {
	*LocalStorage
	client *s3.Client
	bucket string
	region string
}

// NewS3Storage creates a new S3Storage instance.
// The outputDir parameter specifies where artifacts are staged locally.
// The cfg parameter contains S3 configuration.
func NewS3Storage(outputDir string, cfg S3Config) (*S3Storage, error) {
	local, err := NewLocalStorage(outputDir)
	if err != nil {
		return nil, err
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Storage{
		LocalStorage: local,
		client:       client,
		bucket:       cfg.Bucket,
		region:       cfg.Region,
	}, nil
}

// Publish uploads the given artifacts under runs/<run-id>/ and returns
// their public URLs in the same order.
func (s *S3Storage) Publish(ctx context.Context, paths []string) ([]string, error) {
	runID := s.RunID()
	if runID == "" {
		runID = uuid.New().String()
	}

	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p) // #nosec G304 - path is provided by trusted caller
		if err != nil {
			return nil, fmt.Errorf("open artifact %s: %w", p, err)
		}

		key := path.Join("runs", runID, filepath.Base(p))
		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("upload to S3: %w", err)
		}

		urls = append(urls, fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key))
	}

	return urls, nil
}
