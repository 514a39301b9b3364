package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/PrintDrop/internal/config"
	"github.com/dharsanguruparan/PrintDrop/internal/model"
	"github.com/dharsanguruparan/PrintDrop/internal/storage"
)

const (
	objectPrefix = "uploads/"
	metaName     = "Filename"
	metaPages    = "Pages"
)

// Storage keeps uploaded documents in a MinIO/S3 bucket. The original file
// name and page count travel as object user metadata.
type Storage struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client: client,
		bucket: cfg.S3Bucket,
		region: cfg.S3Region,
	}, nil
}

// EnsureBucket makes sure the upload bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func objectKey(key string) string {
	return objectPrefix + key
}

// Put uploads the document into the bucket.
func (s *Storage) Put(ctx context.Context, file *model.StoredFile) error {
	if err := storage.ValidateKey(file.Key); err != nil {
		return err
	}
	opts := minio.PutObjectOptions{
		ContentType: file.ContentType,
		UserMetadata: map[string]string{
			metaName:  url.QueryEscape(file.Name),
			metaPages: strconv.Itoa(file.Pages),
		},
	}
	reader := bytes.NewReader(file.Data)
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey(file.Key), reader, int64(len(file.Data)), opts); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Get fetches the document bytes and metadata.
func (s *Storage) Get(ctx context.Context, key string) (*model.StoredFile, error) {
	meta, err := s.Stat(ctx, key)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	meta.Data = buf
	return meta, nil
}

// Stat reads object metadata without downloading the body.
func (s *Storage) Stat(ctx context.Context, key string) (*model.StoredFile, error) {
	if storage.ValidateKey(key) != nil {
		return nil, storage.ErrNotFound
	}
	info, err := s.client.StatObject(ctx, s.bucket, objectKey(key), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return fileFromInfo(key, info), nil
}

// Delete removes the object. S3 deletes are idempotent, so existence is
// checked first to report unknown keys.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.Stat(ctx, key); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// PresignGet returns a signed GET URL that downloads the object under its
// original file name.
func (s *Storage) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey(key), ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

func fileFromInfo(key string, info minio.ObjectInfo) *model.StoredFile {
	name := lookupMeta(info.UserMetadata, metaName)
	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}
	pages, _ := strconv.Atoi(lookupMeta(info.UserMetadata, metaPages))
	return &model.StoredFile{
		Key:         key,
		Name:        name,
		ContentType: info.ContentType,
		Size:        info.Size,
		Pages:       pages,
		UploadedAt:  info.LastModified.UTC(),
	}
}

// lookupMeta matches user metadata keys case-insensitively with or without
// the x-amz-meta- prefix, since servers differ in what they echo back.
func lookupMeta(meta map[string]string, want string) string {
	for k, v := range meta {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k == strings.ToLower(want) {
			return v
		}
	}
	return ""
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound" || resp.StatusCode == 404
}
