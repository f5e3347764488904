package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumaid/internal/llm"
	"resumaid/internal/shared/config"
	"resumaid/internal/shared/storage/kv"
)

func devConfig(t *testing.T) config.Config {
	return config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		KVStoreType:     "memory",
		LLMProvider:     "none",
		SignInURL:       "/auth",
		MaxUploadBytes:  1 << 20,
		ArtifactTTL:     time.Minute,
		RenderScale:     2,
	}
}

func TestBuildWiresInMemoryStack(t *testing.T) {
	app, err := Build(context.Background(), devConfig(t))
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &kv.MemoryGateway{}, app.KV)
	assert.IsType(t, llm.PlaceholderClient{}, app.LLM)
	require.NotNil(t, app.Router)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestBuildFallsBackToPlaceholderLLMInDev(t *testing.T) {
	cfg := devConfig(t)
	cfg.LLMProvider = "openai"

	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()
	assert.IsType(t, llm.PlaceholderClient{}, app.LLM)
}

func TestBuildRejectsMisconfiguredProduction(t *testing.T) {
	cfg := devConfig(t)
	cfg.Env = "production"
	cfg.LLMProvider = "openai"

	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)

	cfg = devConfig(t)
	cfg.Env = "production"
	cfg.KVStoreType = "postgres"
	_, err = Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildRequiresBucketForS3(t *testing.T) {
	cfg := devConfig(t)
	cfg.ObjectStoreType = "s3"
	_, err := Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "S3_BUCKET")
}

func TestCloseIsIdempotent(t *testing.T) {
	app, err := Build(context.Background(), devConfig(t))
	require.NoError(t, err)
	assert.NoError(t, app.Close())
	assert.NoError(t, app.Close())
}
