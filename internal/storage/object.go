package storage

import (
	"context"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/config"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key     string `json:"key"`
	ETag    string `json:"etag"`
	Size    int64  `json:"size"`
	Locator string `json:"locator"`
}

// ObjectStore is the bulk store for dataset archives, backed by any
// S3-compatible endpoint. Large payloads move through presigned URLs so they
// never transit the broker.
type ObjectStore struct {
	client        *minio.Client
	bucket        string
	presignExpiry time.Duration
}

func NewObjectStore(conf *config.Storage) (*ObjectStore, error) {
	client, err := minio.New(conf.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.Minio.AccessKey, conf.Minio.SecretKey, ""),
		Secure: conf.Minio.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create object store client")
	}
	return &ObjectStore{
		client:        client,
		bucket:        conf.Minio.Bucket,
		presignExpiry: time.Duration(conf.Minio.PresignExpirySecs) * time.Second,
	}, nil
}

// EnsureBucket creates the configured bucket if it does not exist yet.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, "check bucket %s", s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrapf(err, "create bucket %s", s.bucket)
	}
	return nil
}

// PutFile streams an on-disk file into the store, for archives too large to
// buffer.
func (s *ObjectStore) PutFile(ctx context.Context, key, filePath, contentType string) (*ObjectInfo, error) {
	info, err := s.client.FPutObject(ctx, s.bucket, key, filePath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, errors.Wrapf(err, "put file %s as %s", filePath, key)
	}
	return &ObjectInfo{
		Key:     key,
		ETag:    info.ETag,
		Size:    info.Size,
		Locator: s.bucket + "/" + key,
	}, nil
}

func (s *ObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrapf(obj.Err, "list objects under %s", prefix)
		}
		out = append(out, ObjectInfo{
			Key:     obj.Key,
			ETag:    obj.ETag,
			Size:    obj.Size,
			Locator: s.bucket + "/" + obj.Key,
		})
	}
	return out, nil
}

// PresignPut issues a time-limited upload URL for direct client upload.
func (s *ObjectStore) PresignPut(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.presignExpiry)
	if err != nil {
		return "", errors.Wrapf(err, "presign upload of %s", key)
	}
	return u.String(), nil
}

func (s *ObjectStore) PresignGet(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignExpiry, url.Values{})
	if err != nil {
		return "", errors.Wrapf(err, "presign download of %s", key)
	}
	return u.String(), nil
}
