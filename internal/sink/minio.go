package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"go-history-harvester/internal/model"
)

// ObjectStore is the subset of an S3 API the object sink needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// MinIOConfig holds S3 connection settings.
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// S3Client implements ObjectStore with minio-go.
type S3Client struct {
	client *minio.Client
	region string
}

func NewS3Client(cfg MinIOConfig) (*S3Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = useSSL || u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &S3Client{client: client, region: cfg.Region}, nil
}

func (s *S3Client) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region})
}

func (s *S3Client) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

// ObjectSink writes one JSON object per document. Re-writing a document
// overwrites the same key.
type ObjectSink struct {
	store  ObjectStore
	bucket string
	prefix string
}

// NewObjectSink makes sure the bucket exists.
func NewObjectSink(ctx context.Context, store ObjectStore, bucket, prefix string) (*ObjectSink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if err := store.EnsureBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", bucket, err)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ObjectSink{store: store, bucket: bucket, prefix: prefix}, nil
}

// ObjectKey returns the key a document is stored under.
func (s *ObjectSink) ObjectKey(partition, id string) string {
	return s.prefix + partition + "/" + url.PathEscape(id) + ".json"
}

func (s *ObjectSink) Write(ctx context.Context, partition string, docs []model.IndexedDocument) error {
	for _, d := range docs {
		data, err := json.Marshal(d.Doc)
		if err != nil {
			return &TransportError{Sink: "minio", Partition: partition, Err: fmt.Errorf("encode %s: %w", d.ID, err)}
		}
		if err := s.store.PutObject(ctx, s.bucket, s.ObjectKey(partition, d.ID), data); err != nil {
			return &TransportError{Sink: "minio", Partition: partition, Err: err}
		}
	}
	return nil
}
