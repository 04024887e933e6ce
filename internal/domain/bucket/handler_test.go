package bucket

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := setupService(t)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestBucketEndpoints(t *testing.T) {
	r := setupRouter(t)

	rr := doJSON(r, http.MethodPost, "/api/v1/bucket/", validSpec("region1-storage", "region1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	id := created["id"].(string)
	assert.Equal(t, "secret-region1", created["secret_key"])

	rr = doJSON(r, http.MethodGet, "/api/v1/bucket/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])
	assert.NotContains(t, list[0], "secret_key")

	rr = doJSON(r, http.MethodPatch, "/api/v1/bucket/"+id, map[string]any{"name": "only-name"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "VALIDATION_ERROR")

	rr = doJSON(r, http.MethodPatch, "/api/v1/bucket/"+id, validSpec("renamed", "region1"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"renamed"`)

	rr = doJSON(r, http.MethodDelete, "/api/v1/bucket/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(r, http.MethodGet, "/api/v1/bucket/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error"`)
}

func TestBucketCreate_MalformedBody(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bucket/", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
