package hydrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumaid/internal/artifacts"
	"resumaid/internal/resumes"
	"resumaid/internal/shared/storage/kv"
	"resumaid/internal/shared/storage/object"
	"resumaid/internal/shared/storage/object/local"
)

const blobPrefix = "/api/v1/blobs/"

const storedFeedback = `{"overallScore":48,"ATS":{"score":90,"tips":[]},"toneAndStyle":{"score":71,"tips":[]},` +
	`"content":{"score":50,"tips":[]},"structure":{"score":20,"tips":[]},"skills":{"score":60,"tips":[]}}`

type fixture struct {
	loader   *Loader
	kv       kv.Gateway
	store    object.ObjectStore
	registry *artifacts.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := kv.NewMemoryGateway()
	store := local.New(t.TempDir())
	reg := artifacts.NewRegistry(time.Minute, blobPrefix)
	t.Cleanup(reg.Close)
	return &fixture{
		loader:   &Loader{Resumes: &resumes.Service{KV: gw}, Store: store, Registry: reg},
		kv:       gw,
		store:    store,
		registry: reg,
	}
}

func (f *fixture) save(t *testing.T, name string, data []byte) string {
	t.Helper()
	key, _, _, err := f.store.Save(context.Background(), "owner", name, bytes.NewReader(data))
	require.NoError(t, err)
	return key
}

func (f *fixture) putRecord(t *testing.T, key, raw string) {
	t.Helper()
	require.NoError(t, f.kv.Namespace("owner").Set(context.Background(), key, raw))
}

func (f *fixture) resolve(t *testing.T, url string) ([]byte, string) {
	t.Helper()
	require.True(t, strings.HasPrefix(url, blobPrefix), url)
	data, mime, ok := f.registry.Resolve(strings.TrimPrefix(url, blobPrefix))
	require.True(t, ok, "reference %s should resolve", url)
	return data, mime
}

type countingStore struct {
	object.ObjectStore
	mu    sync.Mutex
	opens map[string]int
}

func (s *countingStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.opens[key]++
	s.mu.Unlock()
	return s.ObjectStore.Open(ctx, key)
}

func (s *countingStore) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[key]
}

func TestLoadCurrentRecord(t *testing.T) {
	fx := newFixture(t)
	docKey := fx.save(t, "cv.pdf", []byte("%PDF-1.4 body"))
	imgKey := fx.save(t, "cv.png", []byte("\x89PNG\r\n\x1a\nimage"))
	fx.putRecord(t, "resume-r1", `{"id":"r1","file":"`+docKey+`","imagePath":"`+imgKey+`","companyName":"Acme","jobTitle":"Eng","jobDescription":"Go","feedback":`+storedFeedback+`}`)

	view, err := fx.loader.Load(context.Background(), "owner", "owner|v1", "r1")
	require.NoError(t, err)
	assert.Empty(t, view.Problems)
	assert.Equal(t, "v2", view.Shape)

	data, mime := fx.resolve(t, view.DocumentURL)
	assert.Equal(t, "%PDF-1.4 body", string(data))
	assert.Equal(t, "application/pdf", mime)

	_, mime = fx.resolve(t, view.ThumbnailURL)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "image", view.Thumbnail)

	require.NotNil(t, view.Summary)
	assert.Equal(t, 48, view.Summary.OverallScore)
	assert.Equal(t, "Needs work", view.Summary.Badge)
	assert.Equal(t, "Strong", view.Summary.Sections[0].Badge)
}

func TestLoadLegacyRecordReadsFeedbackBlob(t *testing.T) {
	fx := newFixture(t)
	docKey := fx.save(t, "old.pdf", []byte("%PDF-1.3"))
	fbKey := fx.save(t, "feedback.json", []byte(storedFeedback))
	fx.putRecord(t, "resume:old", `{"id":"old","resumePath":"`+docKey+`","imagePath":"`+docKey+`","feedbackPath":"`+fbKey+`"}`)

	view, err := fx.loader.Load(context.Background(), "owner", "owner|v1", "old")
	require.NoError(t, err)
	assert.Empty(t, view.Problems)
	assert.Equal(t, "v1", view.Shape)
	require.NotNil(t, view.Feedback)
	assert.Equal(t, 48, view.Feedback.OverallScore)
	assert.Equal(t, PlaceholderThumbnail, view.Thumbnail)
	assert.Empty(t, view.ThumbnailURL)
	assert.NotEmpty(t, view.DocumentURL)
}

func TestLoadReadsFeedbackBlobOnlyWhenNotEmbedded(t *testing.T) {
	fx := newFixture(t)
	docKey := fx.save(t, "cv.pdf", []byte("%PDF"))
	fbKey := fx.save(t, "feedback.json", []byte(storedFeedback))
	counter := &countingStore{ObjectStore: fx.store, opens: map[string]int{}}
	fx.loader.Store = counter

	fx.putRecord(t, "resume-both", `{"id":"both","file":"`+docKey+`","feedbackPath":"`+fbKey+`","feedback":`+storedFeedback+`}`)
	view, err := fx.loader.Load(context.Background(), "owner", "owner|v1", "both")
	require.NoError(t, err)
	require.NotNil(t, view.Feedback)
	assert.Equal(t, 0, counter.count(fbKey), "embedded feedback wins")
	assert.Equal(t, 1, counter.count(docKey))

	fx.putRecord(t, "resume:path", `{"id":"path","resumePath":"`+docKey+`","feedbackPath":"`+fbKey+`"}`)
	view, err = fx.loader.Load(context.Background(), "owner", "owner|v2", "path")
	require.NoError(t, err)
	require.NotNil(t, view.Feedback)
	assert.Equal(t, 48, view.Feedback.OverallScore)
	assert.Equal(t, 1, counter.count(fbKey), "exactly one feedback read")
}

func TestLoadWithoutViewIDsStaysBounded(t *testing.T) {
	fx := newFixture(t)
	fx.registry.SetViewLimit(4)
	docKey := fx.save(t, "cv.pdf", []byte("%PDF"))
	fx.putRecord(t, "resume-r6", `{"id":"r6","file":"`+docKey+`","feedback":{}}`)

	for i := 0; i < 50; i++ {
		_, err := fx.loader.Load(context.Background(), "owner", fmt.Sprintf("owner|nav-%d", i), "r6")
		require.NoError(t, err)
	}
	assert.Equal(t, 4, fx.registry.Len())
}

func TestLoadSubResultsFailIndependently(t *testing.T) {
	fx := newFixture(t)
	imgKey := fx.save(t, "cv.png", []byte("\x89PNG\r\n\x1a\n"))
	missingDoc := strings.Split(imgKey, "/")[0] + "/deadbeef_missing.pdf"
	fx.putRecord(t, "resume-r2", `{"id":"r2","file":"`+missingDoc+`","imagePath":"`+imgKey+`","feedback":`+storedFeedback+`}`)

	view, err := fx.loader.Load(context.Background(), "owner", "owner|v1", "r2")
	require.NoError(t, err)
	require.Len(t, view.Problems, 1)
	assert.Equal(t, PartDocument, view.Problems[0].Part)
	assert.Equal(t, "blob_missing", view.Problems[0].Code)
	assert.Empty(t, view.DocumentURL)
	assert.NotNil(t, view.Feedback, "feedback still resolves")
	assert.NotEmpty(t, view.ThumbnailURL, "thumbnail still resolves")
}

func TestLoadBadFeedbackBlobAndMissingDocument(t *testing.T) {
	fx := newFixture(t)
	docKey := fx.save(t, "cv.pdf", []byte("%PDF"))
	fbKey := fx.save(t, "feedback.json", []byte("{not json"))
	fx.putRecord(t, "resume-r3", `{"id":"r3","resumePath":"`+docKey+`","feedbackPath":"`+fbKey+`"}`)
	fx.putRecord(t, "resume-r4", `{"id":"r4","companyName":"NoFile","feedbackPath":"`+fbKey+`"}`)

	view, err := fx.loader.Load(context.Background(), "owner", "owner|v1", "r3")
	require.NoError(t, err)
	require.Len(t, view.Problems, 1)
	assert.Equal(t, PartFeedback, view.Problems[0].Part)
	assert.Nil(t, view.Feedback)
	assert.NotEmpty(t, view.DocumentURL)

	view, err = fx.loader.Load(context.Background(), "owner", "owner|v2", "r4")
	require.NoError(t, err)
	parts := []string{}
	for _, p := range view.Problems {
		parts = append(parts, p.Part)
	}
	assert.Equal(t, []string{PartDocument, PartFeedback}, parts)
}

func TestLoadNotFound(t *testing.T) {
	fx := newFixture(t)
	fx.putRecord(t, "resume-broken", `{"id":`)

	for _, id := range []string{"missing", "broken", ""} {
		_, err := fx.loader.Load(context.Background(), "owner", "owner|v1", id)
		assert.True(t, errors.Is(err, resumes.ErrNotFound), id)
	}
	assert.Equal(t, 0, fx.registry.Len())
}

func TestReloadRevokesPreviousReferences(t *testing.T) {
	fx := newFixture(t)
	docKey := fx.save(t, "cv.pdf", []byte("%PDF"))
	fx.putRecord(t, "resume-r5", `{"id":"r5","file":"`+docKey+`","feedback":{}}`)

	first, err := fx.loader.Load(context.Background(), "owner", "owner|tab", "r5")
	require.NoError(t, err)
	second, err := fx.loader.Load(context.Background(), "owner", "owner|tab", "r5")
	require.NoError(t, err)

	_, _, ok := fx.registry.Resolve(strings.TrimPrefix(first.DocumentURL, blobPrefix))
	assert.False(t, ok)
	fx.resolve(t, second.DocumentURL)
	assert.Nil(t, second.Feedback)
	assert.Nil(t, second.Summary)
}
