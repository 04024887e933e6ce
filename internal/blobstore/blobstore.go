// Package blobstore writes upload payloads to the object storage backend a
// bucket registration points at. AWS registrations go through the AWS SDK;
// every other S3-compatible provider goes through minio-go.
package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
)

const (
	ProviderAWS = "aws"

	defaultSigningRegion = "us-east-1"
	defaultPartSize      = 16 << 20
	minPartSize          = 5 << 20
)

// Store is one backend bucket.
type Store interface {
	// Put streams r to key. size may be -1 when the length is unknown; some
	// backends reject that with ErrLengthRequired.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Opener builds a Store for a target.
type Opener interface {
	Open(ctx context.Context, t Target) (Store, error)
}

type OpenerFunc func(ctx context.Context, t Target) (Store, error)

func (f OpenerFunc) Open(ctx context.Context, t Target) (Store, error) {
	return f(ctx, t)
}

// Target describes where and how to reach a backend bucket.
type Target struct {
	Provider  string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Options   Options
}

// Options are the optional per-bucket knobs carried in custom_config.
type Options struct {
	SigningRegion string `json:"signing_region,omitempty"`
	BackendBucket string `json:"backend_bucket,omitempty"`
	PathStyle     *bool  `json:"path_style,omitempty"`
	PartSize      uint64 `json:"part_size,omitempty"`
}

// ParseOptions decodes custom_config. Empty input yields defaults.
func ParseOptions(raw string) (Options, error) {
	var o Options
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return o, nil
	}
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return o, fmt.Errorf("parse custom_config: %w", err)
	}
	if o.PartSize != 0 && o.PartSize < minPartSize {
		return o, fmt.Errorf("part_size must be at least %d bytes", minPartSize)
	}
	return o, nil
}

func (t Target) region() string {
	if t.Options.SigningRegion != "" {
		return t.Options.SigningRegion
	}
	return defaultSigningRegion
}

func (t Target) bucket() string {
	if t.Options.BackendBucket != "" {
		return t.Options.BackendBucket
	}
	return t.Bucket
}

func (t Target) partSize() uint64 {
	if t.Options.PartSize != 0 {
		return t.Options.PartSize
	}
	return defaultPartSize
}

func (t Target) pathStyle(def bool) bool {
	if t.Options.PathStyle != nil {
		return *t.Options.PathStyle
	}
	return def
}

// hostAndScheme splits an endpoint that may or may not carry a scheme. An
// explicit scheme wins over UseSSL.
func (t Target) hostAndScheme() (host string, secure bool, err error) {
	if !strings.Contains(t.Endpoint, "://") {
		return strings.TrimRight(t.Endpoint, "/"), t.UseSSL, nil
	}
	u, err := url.Parse(t.Endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", t.Endpoint, err)
	}
	return u.Host, u.Scheme == "https", nil
}

func (t Target) baseURL() (string, error) {
	host, secure, err := t.hostAndScheme()
	if err != nil {
		return "", err
	}
	if secure {
		return "https://" + host, nil
	}
	return "http://" + host, nil
}

// Open picks the adapter for t.Provider.
func Open(ctx context.Context, t Target) (Store, error) {
	if t.bucket() == "" {
		return nil, fmt.Errorf("blobstore: bucket is required")
	}
	if strings.EqualFold(t.Provider, ProviderAWS) {
		return newS3Store(ctx, t)
	}
	return newMinioStore(t)
}

// DefaultOpener opens real backends.
var DefaultOpener Opener = OpenerFunc(Open)
