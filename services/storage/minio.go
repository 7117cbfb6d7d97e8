package storagesvc

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/lingora/backend/core"
)

// MinioStorage stores objects in a single MinIO (or any S3-compatible)
// bucket and serves downloads through presigned URLs.
type MinioStorage struct {
	client *minio.Client
	bucket string
	urlTTL time.Duration
}

var _ core.ObjectStorage = (*MinioStorage)(nil)

func NewMinioStorage(conf *core.Config) (*MinioStorage, error) {
	client, err := minio.New(conf.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.Storage.AccessKey, conf.Storage.SecretKey, ""),
		Secure: conf.Storage.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}
	return &MinioStorage{
		client: client,
		bucket: conf.Storage.Bucket,
		urlTTL: conf.Storage.PresignedTTL,
	}, nil
}

// EnsureBucket creates the configured bucket if it does not exist yet.
func (s *MinioStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, "checking bucket")
	}
	if exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	return errors.Wrap(err, "creating bucket")
}

func (s *MinioStorage) Upload(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectPath, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return errors.Wrap(err, "uploading object")
}

func (s *MinioStorage) PresignedURL(ctx context.Context, objectPath string) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(objectPath)))

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectPath, s.urlTTL, reqParams)
	if err != nil {
		return "", errors.Wrap(err, "presigning object URL")
	}
	return presigned.String(), nil
}

func (s *MinioStorage) Exists(ctx context.Context, objectPath string) (bool, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, objectPath, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, "checking object")
	}
	return true, nil
}
