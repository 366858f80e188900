// Package s3 uploads output files to S3 or an S3-compatible store.
package s3

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	apperrors "github.com/tzl-ops/flightarchive/pkg/errors"
)

// Config holds S3 client configuration.
type Config struct {
	// Region is the AWS region (e.g., "eu-central-1")
	Region string `yaml:"region"`

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string `yaml:"endpoint"`

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool `yaml:"path_style"`

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
	SessionToken    string `yaml:"-"`

	UploadTimeout time.Duration `yaml:"upload_timeout"`
}

// DefaultConfig returns sensible defaults for S3 configuration.
func DefaultConfig() Config {
	return Config{UploadTimeout: 5 * time.Minute}
}

// putObjectAPI is the part of the SDK client used for uploads.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client uploads files.
type Client struct {
	cfg    Config
	client putObjectAPI
}

// NewClient creates a new S3 client from the default credential chain,
// overridden by explicit credentials when both key parts are set.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUploadFailed, "load AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newClient(cfg, client), nil
}

func newClient(cfg Config, api putObjectAPI) *Client {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultConfig().UploadTimeout
	}
	return &Client{cfg: cfg, client: api}
}

// Upload puts the file at localPath under dest, an "s3://bucket/key" URL.
// A dest ending in "/" receives the file's base name. Failures carry E302.
func (c *Client) Upload(ctx context.Context, localPath, dest string) (string, error) {
	bucket, key, err := ParseURL(dest)
	if err != nil {
		return "", err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		key = path.Join(key, filepath.Base(localPath))
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodeUploadFailed, "open %s", localPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodeUploadFailed, "stat %s", localPath)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.UploadTimeout)
	defer cancel()

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType(localPath)),
	})
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodeUploadFailed, "put s3://%s/%s", bucket, key).
			WithContext("bucket", bucket)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

// ParseURL splits "s3://bucket/key" into bucket and key.
func ParseURL(u string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(u, "s3://")
	if !ok {
		return "", "", apperrors.New(apperrors.CodeInvalidConfig, "s3 destination must start with s3://").
			WithContext("url", u)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", apperrors.New(apperrors.CodeInvalidConfig, "s3 destination has no bucket").
			WithContext("url", u)
	}
	return bucket, key, nil
}

// IsURL reports whether s names an S3 destination.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "s3://")
}

// ContentType returns the MIME type of an output file by extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".jsonl":
		return "application/x-ndjson"
	case ".csv":
		return "text/csv"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}
