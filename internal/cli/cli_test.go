package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBootstrap_PrintsAccessKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/st/bootstrap", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"tok-1","name":"admin","role":"admin","access_key":"abc123"}`))
	}))
	defer srv.Close()

	out, err := run(t, "bootstrap", "--url", srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, out, "AccessKey: abc123")
	assert.Contains(t, out, "ID:        tok-1")
}

func TestBootstrap_AlreadyDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"CONFLICT","message":"System has already been bootstrapped"}}`))
	}))
	defer srv.Close()

	_, err := run(t, "bootstrap", "--url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "already been bootstrapped")
}

func TestMigrateThenCleanup(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "kfs.db")
	regions := filepath.Join(t.TempDir(), "regions.json")

	out, err := run(t, "migrate", "--database", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")

	out, err = run(t, "cleanup", "--database", dsn, "--region", regions)
	require.NoError(t, err)
	assert.Contains(t, out, "purged 0 stale uploads")
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	_, err := run(t, "migrate", "--port", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}
