package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumaid/internal/shared/storage/kv"
	"resumaid/internal/shared/storage/object"
	"resumaid/internal/shared/storage/object/local"
)

type flakyStore struct {
	object.ObjectStore
	failKey string
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if key == s.failKey {
		return errors.New("permission denied")
	}
	return s.ObjectStore.Delete(ctx, key)
}

func seed(t *testing.T) (*Service, *local.Store, kv.Gateway) {
	t.Helper()
	store := local.New(t.TempDir())
	gw := kv.NewMemoryGateway()
	ctx := context.Background()
	for _, name := range []string{"a.pdf", "a.png"} {
		_, _, _, err := store.Save(ctx, "owner", name, bytes.NewReader(bytes.Repeat([]byte("x"), 1536)))
		require.NoError(t, err)
	}
	_, _, _, err := store.Save(ctx, "other", "b.pdf", bytes.NewReader([]byte("y")))
	require.NoError(t, err)
	require.NoError(t, gw.Namespace("owner").Set(ctx, "resume-1", "{}"))
	require.NoError(t, gw.Namespace("other").Set(ctx, "resume-2", "{}"))
	return &Service{Store: store, KV: gw}, store, gw
}

func TestListFiles(t *testing.T) {
	svc, _, _ := seed(t)
	files, err := svc.ListFiles(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "1.50 KB", files[0].Size)
	assert.Contains(t, []string{"a.pdf", "a.png"}, files[0].Name)
}

func TestWipeDeletesFilesThenFlushes(t *testing.T) {
	svc, store, gw := seed(t)
	ctx := context.Background()

	res, err := svc.Wipe(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedFiles)
	assert.True(t, res.FlushedKV)

	left, err := store.List(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, left)
	entries, err := gw.Namespace("owner").List(ctx, "*", false)
	require.NoError(t, err)
	assert.Empty(t, entries)

	others, err := store.List(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, others, 1)
	_, err = gw.Namespace("other").Get(ctx, "resume-2")
	assert.NoError(t, err)
}

func TestWipeContinuesPastDeleteFailure(t *testing.T) {
	svc, store, _ := seed(t)
	objs, err := store.List(context.Background(), "owner")
	require.NoError(t, err)
	svc.Store = &flakyStore{ObjectStore: store, failKey: objs[0].Key}

	res, err := svc.Wipe(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedFiles)
	assert.Equal(t, []string{objs[0].Key}, res.FailedFiles)
	assert.True(t, res.FlushedKV)
}

func TestWipeHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := seed(t)
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("userId", "owner") })
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/files", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/wipe", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var res WipeResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, 2, res.DeletedFiles)
}
