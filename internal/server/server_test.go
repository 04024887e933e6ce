package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"kineticafs/internal/blobstore"
	"kineticafs/internal/config"
	"kineticafs/internal/database"
	"kineticafs/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memBlobs) Open(context.Context, blobstore.Target) (blobstore.Store, error) { return m, nil }

func (m *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		AppEnv:             "test",
		Port:               0,
		RegionsPath:        filepath.Join(t.TempDir(), "regions.json"),
		TokenPepper:        "test-pepper",
		MasterKey:          "test-master-key",
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedHeaders: []string{"Content-Type", "x-api-token"},
		LogLevel:           "info",
		LogFormat:          "text",
		BlobTTL:            10 * time.Minute,
		ShutdownGrace:      time.Second,
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.OpenMemory(context.Background(), "server_"+t.Name())
	require.NoError(t, err)

	app, err := NewWithDB(testConfig(t), db, &memBlobs{objects: map[string][]byte{}}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

type client struct {
	t      *testing.T
	router http.Handler
}

func (c client) do(method, path, key string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
		reader = http.NoBody
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("x-api-token", key)
	}
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func bootstrap(t *testing.T, c client) string {
	t.Helper()
	rr := c.do(http.MethodPost, "/api/v1/st/bootstrap", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[map[string]any](t, rr)["access_key"].(string)
}

func bucketSpec(name, region string) map[string]any {
	return map[string]any{
		"name":         name,
		"region":       region,
		"endpoint":     "http://" + region + ":8333",
		"access_key":   "ak-" + region,
		"secret_key":   "sk-" + region,
		"use_ssl":      false,
		"s3_provider":  "seaweedfs",
		"storage_type": 0,
	}
}

func TestFirstRunFlow(t *testing.T) {
	c := client{t, newTestApp(t).Router}

	rr := c.do(http.MethodGet, "/api/v1/st/first-run", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode[map[string]any](t, rr)["first_run"])

	adminKey := bootstrap(t, c)
	assert.Len(t, adminKey, 64)

	rr = c.do(http.MethodPost, "/api/v1/st/bootstrap", "", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Contains(t, body, "error")

	// public routes ignore credentials entirely
	rr = c.do(http.MethodGet, "/api/v1/st/first-run", "garbage", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode[map[string]any](t, rr)["first_run"])
}

func TestConcurrentBootstrap(t *testing.T) {
	app := newTestApp(t)
	c := client{t, app.Router}

	const n = 12
	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- c.do(http.MethodPost, "/api/v1/st/bootstrap", "", nil).Code
		}()
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 1, http.StatusConflict: n - 1}, counts)

	tokens, err := app.Tokens.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "admin", string(tokens[0].Role))
}

func TestAdminRoutesRejectMissingInvalidAndUserTokens(t *testing.T) {
	c := client{t, newTestApp(t).Router}
	adminKey := bootstrap(t, c)

	rr := c.do(http.MethodPost, "/api/v1/st/", adminKey, map[string]any{"name": "worker"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	userKey := decode[map[string]any](t, rr)["access_key"].(string)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/st/"},
		{http.MethodPost, "/api/v1/st/"},
		{http.MethodGet, "/api/v1/st/some-id"},
		{http.MethodPatch, "/api/v1/st/some-id"},
		{http.MethodDelete, "/api/v1/st/some-id"},
		{http.MethodGet, "/api/v1/bucket/"},
		{http.MethodPost, "/api/v1/bucket/"},
		{http.MethodGet, "/api/v1/bucket/some-id"},
		{http.MethodPatch, "/api/v1/bucket/some-id"},
		{http.MethodDelete, "/api/v1/bucket/some-id"},
	}
	for _, r := range routes {
		assert.Equal(t, http.StatusUnauthorized, c.do(r.method, r.path, "", nil).Code, "%s %s without token", r.method, r.path)
		assert.Equal(t, http.StatusUnauthorized, c.do(r.method, r.path, "not-a-token", nil).Code, "%s %s malformed token", r.method, r.path)
		assert.Equal(t, http.StatusUnauthorized, c.do(r.method, r.path, adminKey[:63]+"g", nil).Code, "%s %s bad hex", r.method, r.path)
		assert.Equal(t, http.StatusForbidden, c.do(r.method, r.path, userKey, nil).Code, "%s %s user token", r.method, r.path)
	}

	// user tokens may drive the file routes
	rr = c.do(http.MethodGet, "/api/v1/file/unknown", userKey, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = c.do(http.MethodGet, "/api/v1/file/unknown", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServiceTokenNameReuse(t *testing.T) {
	c := client{t, newTestApp(t).Router}
	adminKey := bootstrap(t, c)

	rr := c.do(http.MethodPost, "/api/v1/st/", adminKey, map[string]any{"name": "dup"})
	require.Equal(t, http.StatusOK, rr.Code)
	id := decode[map[string]any](t, rr)["id"].(string)

	rr = c.do(http.MethodPost, "/api/v1/st/", adminKey, map[string]any{"name": "dup"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = c.do(http.MethodDelete, "/api/v1/st/"+id, adminKey, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = c.do(http.MethodPost, "/api/v1/st/", adminKey, map[string]any{"name": "dup"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBucketLifecycle(t *testing.T) {
	c := client{t, newTestApp(t).Router}
	adminKey := bootstrap(t, c)

	rr := c.do(http.MethodPost, "/api/v1/bucket/", adminKey, bucketSpec("region1-storage", "region1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	first := decode[map[string]any](t, rr)["id"].(string)

	rr = c.do(http.MethodPost, "/api/v1/bucket/", adminKey, bucketSpec("region2-storage", "region2"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	second := decode[map[string]any](t, rr)["id"].(string)

	rr = c.do(http.MethodGet, "/api/v1/bucket/", adminKey, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var ids []string
	for _, b := range decode[[]map[string]any](t, rr) {
		ids = append(ids, b["id"].(string))
	}
	assert.ElementsMatch(t, []string{first, second}, ids)

	rr = c.do(http.MethodDelete, "/api/v1/bucket/"+first, adminKey, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = c.do(http.MethodGet, "/api/v1/bucket/"+first, adminKey, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFileUploadScenario(t *testing.T) {
	c := client{t, newTestApp(t).Router}
	adminKey := bootstrap(t, c)

	rr := c.do(http.MethodPost, "/api/v1/st/", adminKey, map[string]any{"name": "uploader"})
	require.Equal(t, http.StatusOK, rr.Code)
	userKey := decode[map[string]any](t, rr)["access_key"].(string)

	rr = c.do(http.MethodPost, "/api/v1/bucket/", adminKey, bucketSpec("region1-storage", "region1"))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = c.do(http.MethodPost, "/api/v1/file/", userKey, map[string]any{"regionId": "region1", "bucketCode": "region1-storage"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	created := decode[map[string]any](t, rr)
	id, blobID := created["id"].(string), created["blobId"].(string)

	rr = c.do(http.MethodPatch, "/api/v1/upload/"+blobID, userKey, []byte("file contents"))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/api/v1/file/"+id+"/finalize", userKey, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Finalized", decode[map[string]any](t, rr)["state"])

	rr = c.do(http.MethodDelete, "/api/v1/file/"+id, adminKey, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Deleted", decode[map[string]any](t, rr)["state"])

	rr = c.do(http.MethodGet, "/api/v1/file/"+id, userKey, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthz(t *testing.T) {
	c := client{t, newTestApp(t).Router}
	rr := c.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
