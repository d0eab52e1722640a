package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	config "github.com/maheshrc27/voicepost/configs"
)

// StorageService wraps the Cloudflare R2 bucket holding recordings and
// attachments.
type StorageService interface {
	CreateUploadTarget(ctx context.Context, key, contentType string) (string, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string)
	Ping(ctx context.Context) error
}

type r2Storage struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	uploadTTL time.Duration
}

func NewStorageService(ctx context.Context, cfg config.Config) (StorageService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2.AccessKey, cfg.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	endpoint := cfg.R2.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2.AccountID)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return NewStorageServiceFromClient(client, cfg.R2.BucketName, cfg.R2.UploadURLTTL), nil
}

func NewStorageServiceFromClient(client *s3.Client, bucket string, uploadTTL time.Duration) StorageService {
	if uploadTTL <= 0 {
		uploadTTL = 15 * time.Minute
	}
	return &r2Storage{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    bucket,
		uploadTTL: uploadTTL,
	}
}

// CreateUploadTarget returns a presigned PUT url the browser uploads to
// directly.
func (s *r2Storage) CreateUploadTarget(ctx context.Context, key, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(s.uploadTTL))
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("%w: presign %s: %v", ErrStorage, key, err)
	}
	return req.URL, nil
}

func (s *r2Storage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("%w: upload %s: %v", ErrStorage, key, err)
	}
	return nil
}

func (s *r2Storage) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, fmt.Errorf("%w: object %s", ErrNotFound, key)
		}
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: download %s: %v", ErrStorage, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, key, err)
	}
	return data, nil
}

// Remove logs failures instead of returning them.
func (s *r2Storage) Remove(ctx context.Context, key string) {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Warn("failed to remove object", "key", key, "error", err)
	}
}

func (s *r2Storage) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func isMissingObject(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re interface{ HTTPStatusCode() int }
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
