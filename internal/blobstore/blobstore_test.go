package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPut struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func fakeS3(t *testing.T) (*httptest.Server, func() []recordedPut) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedPut{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: body})
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), reqs...)
	}
}

func TestParseOptions(t *testing.T) {
	o, err := ParseOptions("")
	require.NoError(t, err)
	assert.Equal(t, Options{}, o)

	o, err = ParseOptions(`{"signing_region":"eu-west-1","backend_bucket":"raw","path_style":false,"part_size":8388608}`)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", o.SigningRegion)
	assert.Equal(t, "raw", o.BackendBucket)
	require.NotNil(t, o.PathStyle)
	assert.False(t, *o.PathStyle)

	_, err = ParseOptions(`{"part_size":1024}`)
	assert.Error(t, err)
	_, err = ParseOptions(`not json`)
	assert.Error(t, err)
}

func TestTargetDefaults(t *testing.T) {
	tg := Target{Endpoint: "region1:8333", Bucket: "region1-storage"}
	host, secure, err := tg.hostAndScheme()
	require.NoError(t, err)
	assert.Equal(t, "region1:8333", host)
	assert.False(t, secure)
	assert.Equal(t, "us-east-1", tg.region())
	assert.Equal(t, "region1-storage", tg.bucket())

	tg = Target{Endpoint: "https://s3.example.com", UseSSL: false, Options: Options{BackendBucket: "other"}}
	base, err := tg.baseURL()
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com", base)
	assert.Equal(t, "other", tg.bucket())
}

func TestOpen_PicksAdapter(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Target{Provider: "AWS", Endpoint: "http://localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, s)

	s, err = Open(ctx, Target{Provider: "seaweedfs", Endpoint: "localhost:8333", Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.IsType(t, &MinioStore{}, s)

	_, err = Open(ctx, Target{Provider: "minio", Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestS3Store_PutStreamsUnsignedPayload(t *testing.T) {
	srv, requests := fakeS3(t)
	store, err := Open(context.Background(), Target{
		Provider: ProviderAWS, Endpoint: srv.URL, Bucket: "uploads", AccessKey: "ak", SecretKey: "sk",
	})
	require.NoError(t, err)

	payload := []byte("hello blob")
	err = store.Put(context.Background(), "files/abc", bytes.NewReader(payload), int64(len(payload)), "text/plain")
	require.NoError(t, err)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/uploads/files/abc", reqs[0].path)
	assert.Equal(t, "UNSIGNED-PAYLOAD", reqs[0].header.Get("X-Amz-Content-Sha256"))
	assert.Equal(t, payload, reqs[0].body)

	require.NoError(t, store.Delete(context.Background(), "files/abc"))
}

func TestS3Store_RequiresLength(t *testing.T) {
	store, err := Open(context.Background(), Target{Provider: ProviderAWS, Endpoint: "http://127.0.0.1:1", Bucket: "b"})
	require.NoError(t, err)
	err = store.Put(context.Background(), "k", strings.NewReader("x"), -1, "")
	assert.ErrorIs(t, err, ErrLengthRequired)
}

func TestMinioStore_Put(t *testing.T) {
	srv, requests := fakeS3(t)
	store, err := Open(context.Background(), Target{
		Provider: "seaweedfs", Endpoint: srv.URL, Bucket: "uploads", AccessKey: "ak", SecretKey: "sk",
	})
	require.NoError(t, err)

	payload := []byte("seaweed bytes")
	require.NoError(t, store.Put(context.Background(), "files/xyz", bytes.NewReader(payload), int64(len(payload)), ""))

	var put *recordedPut
	for _, r := range requests() {
		if r.method == http.MethodPut {
			r := r
			put = &r
		}
	}
	require.NotNil(t, put)
	assert.Equal(t, "/uploads/files/xyz", put.path)
	assert.Equal(t, "application/octet-stream", put.header.Get("Content-Type"))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("op", nil))
	assert.ErrorIs(t, classify("op", context.Canceled), context.Canceled)
	assert.False(t, IsTransient(classify("op", context.Canceled)))

	assert.True(t, IsTransient(classify("op", context.DeadlineExceeded)))
	assert.True(t, IsTransient(classify("op", &net.OpError{Op: "dial", Err: errors.New("connection refused")})))
	assert.True(t, IsTransient(classify("op", minio.ErrorResponse{StatusCode: http.StatusServiceUnavailable})))
	assert.False(t, IsTransient(classify("op", minio.ErrorResponse{StatusCode: http.StatusForbidden})))
	assert.False(t, IsTransient(classify("op", errors.New("boom"))))

	assert.True(t, isNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound}))
}
