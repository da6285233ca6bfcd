package filestorage

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStorage struct {
	client     *minio.Client
	bucketName string
	baseURL    string
	secure     bool
	retryWait  time.Duration
}

func NewMinioStorage(ctx context.Context, endpoint string, accessKeyID string, secretAccessKey string, useSSL bool, bucketName string, baseURL string) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, err
	}

	if !exists {
		// Create bucket if not exist
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStorage{
		client:     client,
		bucketName: bucketName,
		baseURL:    baseURL,
		secure:     useSSL,
		retryWait:  2 * time.Second,
	}, nil
}

func (s *MinioStorage) Upload(ctx context.Context, blob Blob) (string, error) {
	name := objectName(blob)
	putOptions := minio.PutObjectOptions{
		ContentType:  blob.ContentType,
		UserMetadata: map[string]string{"filename": blob.Name},
	}

	var err error
	for i := range UploadTries {
		_, err = s.client.PutObject(ctx,
			s.bucketName,
			name,
			bytes.NewReader(blob.Data),
			blob.Size(),
			putOptions,
		)
		if err == nil {
			break
		}
		resp := minio.ToErrorResponse(err)
		slog.Error("Upload file to minio", "name", name, "try", i+1, "code", resp.StatusCode, "msg", resp.Message)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.retryWait):
		}
	}
	if err != nil {
		return "", err
	}
	return publicURL(s.baseURL, s.client.EndpointURL().String(), s.bucketName, name, s.secure), nil
}

func (s *MinioStorage) Delete(ctx context.Context, name string) error {
	return s.client.RemoveObject(ctx, s.bucketName, name, minio.RemoveObjectOptions{})
}

func (s *MinioStorage) Exist(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, name, minio.StatObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
