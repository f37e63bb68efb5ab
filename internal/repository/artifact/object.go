package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig holds connection parameters for an S3-compatible bucket.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// ObjectStore stores the artifact pair in an S3-compatible bucket via MinIO.
// With a cache dir set, Load reuses a previously downloaded copy, the same
// way the deployed runtime caches the artifact across warm invocations.
type ObjectStore struct {
	client   *minio.Client
	bucket   string
	prefix   string
	cacheDir string
}

var _ Store = (*ObjectStore)(nil)

// NewObjectStore creates an object-storage-backed store.
func NewObjectStore(cfg ObjectConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// WithCacheDir enables local caching of downloaded artifacts.
func (o *ObjectStore) WithCacheDir(dir string) *ObjectStore {
	o.cacheDir = dir
	return o
}

// Save uploads both halves.
func (o *ObjectStore) Save(ctx context.Context, vectors, meta []byte) error {
	if err := o.put(ctx, VectorsFile, vectors, "application/octet-stream"); err != nil {
		return fmt.Errorf("upload vectors: %w", err)
	}
	if err := o.put(ctx, MetaFile, meta, "application/json"); err != nil {
		return fmt.Errorf("upload passages: %w", err)
	}
	return nil
}

// Load downloads both halves, serving from the local cache when present.
func (o *ObjectStore) Load(ctx context.Context) ([]byte, []byte, error) {
	if o.cacheDir != "" {
		vectors, verr := os.ReadFile(filepath.Join(o.cacheDir, VectorsFile))
		meta, merr := os.ReadFile(filepath.Join(o.cacheDir, MetaFile))
		if verr == nil && merr == nil {
			return vectors, meta, nil
		}
	}

	vectors, err := o.get(ctx, VectorsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("download vectors: %w", err)
	}
	meta, err := o.get(ctx, MetaFile)
	if err != nil {
		return nil, nil, fmt.Errorf("download passages: %w", err)
	}

	if o.cacheDir != "" {
		if err := os.MkdirAll(o.cacheDir, 0o755); err == nil {
			_ = os.WriteFile(filepath.Join(o.cacheDir, VectorsFile), vectors, 0o644)
			_ = os.WriteFile(filepath.Join(o.cacheDir, MetaFile), meta, 0o644)
		}
	}

	return vectors, meta, nil
}

func (o *ObjectStore) put(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := o.client.PutObject(ctx, o.bucket, o.key(name),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	return err
}

func (o *ObjectStore) get(ctx context.Context, name string) ([]byte, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (o *ObjectStore) key(name string) string {
	if o.prefix == "" {
		return name
	}
	return o.prefix + "/" + name
}
