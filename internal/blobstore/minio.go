package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore serves SeaweedFS, MinIO and other S3-compatible providers.
// Unknown lengths stream as multipart uploads, buffering one part at a time.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	partSize uint64
}

func newMinioStore(t Target) (*MinioStore, error) {
	host, secure, err := t.hostAndScheme()
	if err != nil {
		return nil, err
	}
	options := &minio.Options{
		Creds:     miniocreds.NewStaticV4(t.AccessKey, t.SecretKey, ""),
		Secure:    secure,
		Region:    t.region(),
		Transport: defaultTransport(),
	}
	if t.pathStyle(true) {
		options.BucketLookup = minio.BucketLookupPath
	}
	client, err := minio.New(host, options)
	if err != nil {
		return nil, fmt.Errorf("blobstore: create client: %w", err)
	}
	return &MinioStore{client: client, bucket: t.bucket(), partSize: t.partSize()}, nil
}

func defaultTransport() http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}
	clone := base.Clone()
	clone.MaxIdleConnsPerHost = 64
	clone.IdleConnTimeout = 90 * time.Second
	clone.TLSHandshakeTimeout = 10 * time.Second
	clone.ExpectContinueTimeout = time.Second
	return clone
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    s.partSize,
	})
	return classify("put object", err)
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if isNotFound(err) {
		return nil
	}
	return classify("delete object", err)
}
