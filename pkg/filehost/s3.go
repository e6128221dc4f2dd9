package filehost

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Putter is the subset of *s3.Client used for uploads
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the subset of *s3.PresignClient used for direct uploads
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Config locates the bucket
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
	AccessKeyID   string
	SecretKey     string
}

// S3Backend stores documents in an S3 bucket
type S3Backend struct {
	putter    Putter
	presigner Presigner
	bucket    string
	baseURL   string
}

var _ Backend = (*S3Backend)(nil)

// NewS3Backend loads AWS configuration and builds the S3 clients. A custom
// endpoint (LocalStack, MinIO) switches to path-style addressing.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3BackendFromClients(client, s3.NewPresignClient(client), cfg), nil
}

// NewS3BackendFromClients wires prebuilt clients
func NewS3BackendFromClients(putter Putter, presigner Presigner, cfg S3Config) *S3Backend {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		if cfg.Endpoint != "" {
			base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &S3Backend{putter: putter, presigner: presigner, bucket: cfg.Bucket, baseURL: base}
}

// Put uploads body under key
func (b *S3Backend) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	_, err := b.putter.PutObject(ctx, input)
	return err
}

// PresignPut returns a presigned PUT URL valid for ttl
func (b *S3Backend) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	req, err := b.presigner.PresignPutObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// URL is the public address of key
func (b *S3Backend) URL(key string) string {
	return b.baseURL + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
