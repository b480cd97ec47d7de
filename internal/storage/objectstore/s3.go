// Package objectstore хранит изображения товаров в Amazon S3.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// API описывает используемые методы клиента S3.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

var _ API = (*s3.Client)(nil)

// Config описывает бакет и адрес S3.
type Config struct {
	Bucket string
	Region string
	// Endpoint задаётся для S3-совместимых хранилищ (localstack, minio).
	Endpoint string
}

// Store реализует domain.ImageStore поверх S3.
type Store struct {
	api     API
	bucket  string
	baseURL string
}

var _ domain.ImageStore = (*Store)(nil)

// NewClient создаёт клиент S3; при заданном endpoint включается path-style адресация.
func NewClient(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// New создаёт хранилище изображений.
func New(api API, cfg Config) (*Store, error) {
	if api == nil {
		return nil, errors.New("s3 client is nil")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("image bucket is required")
	}
	return &Store{api: api, bucket: cfg.Bucket, baseURL: PublicBaseURL(cfg)}, nil
}

// PublicBaseURL возвращает префикс публичных URL объектов бакета.
func PublicBaseURL(cfg Config) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket + "/"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", cfg.Bucket, cfg.Region)
}

// Upload кладёт объект под ключом file.Name и возвращает его публичный URL.
func (s *Store) Upload(ctx context.Context, file domain.ImageFile) (string, error) {
	if err := file.ValidateName(); err != nil {
		return "", err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(file.Name),
		Body:   bytes.NewReader(file.Data),
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}
	if _, err := s.api.PutObject(ctx, input); err != nil {
		return "", domain.StoreError("put object "+file.Name, err)
	}
	return s.URL(file.Name), nil
}

// Delete удаляет объект; S3 не сообщает об отсутствии ключа, поэтому вызов идемпотентен.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return domain.StoreError("delete object "+key, err)
	}
	return nil
}

// URL строит публичный адрес объекта.
func (s *Store) URL(key string) string {
	return s.baseURL + url.PathEscape(key)
}

// Ping проверяет доступность бакета.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
