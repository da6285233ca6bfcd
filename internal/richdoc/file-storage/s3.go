package filestorage

import (
	"bytes"
	"context"

	"github.com/aisa-it/richdoc/internal/richdoc/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	s3config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage загрузка в S3-совместимое хранилище через aws-sdk.
type S3Storage struct {
	client     *s3.Client
	bucketName string
	endpoint   string
	baseURL    string
}

func NewS3Storage(ctx context.Context, cfg *config.Config) (*S3Storage, error) {
	opts := []func(*s3config.LoadOptions) error{s3config.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKey != "" {
		opts = append(opts, s3config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		))
	}
	s3cfg, err := s3config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.AWSEndpoint
	client := s3.NewFromConfig(s3cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StorageWithClient(client, cfg.AWSBucketName, endpoint, cfg.FilesURL), nil
}

func NewS3StorageWithClient(client *s3.Client, bucketName, endpoint, baseURL string) *S3Storage {
	return &S3Storage{client: client, bucketName: bucketName, endpoint: endpoint, baseURL: baseURL}
}

func (s *S3Storage) Upload(ctx context.Context, blob Blob) (string, error) {
	name := objectName(blob)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(name),
		Body:          bytes.NewReader(blob.Data),
		ContentLength: aws.Int64(blob.Size()),
		ContentType:   aws.String(blob.ContentType),
		Metadata:      map[string]string{"filename": blob.Name},
	})
	if err != nil {
		return "", err
	}
	if s.baseURL == "" && s.endpoint == "" {
		return "https://" + s.bucketName + ".s3.amazonaws.com/" + name, nil
	}
	return publicURL(s.baseURL, s.endpoint, s.bucketName, name, true), nil
}
