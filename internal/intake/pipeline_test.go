package intake

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumaid/internal/convert"
	"resumaid/internal/llm"
	"resumaid/internal/resumes"
	"resumaid/internal/shared/storage/kv"
	"resumaid/internal/shared/storage/object"
	"resumaid/internal/shared/storage/object/local"
)

const feedbackJSON = `{"overallScore":72,"ATS":{"score":80,"tips":[{"type":"good","tip":"Readable"}]},` +
	`"toneAndStyle":{"score":60,"tips":[]},"content":{"score":70,"tips":[]},"structure":{"score":65,"tips":[]},"skills":{"score":55,"tips":[]}}`

type fakeLLM struct {
	mu    sync.Mutex
	docs  []llm.Document
	resp  *llm.Response
	err   error
	calls int
}

func (f *fakeLLM) Feedback(ctx context.Context, doc llm.Document, instructions string) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.docs = append(f.docs, doc)
	return f.resp, f.err
}

type fakePreviewer struct {
	result convert.Result
	calls  int
}

func (f *fakePreviewer) Convert(ctx context.Context, fileName string, data []byte) convert.Result {
	f.calls++
	return f.result
}

type failingStore struct {
	object.ObjectStore
	failOn string
}

func (s *failingStore) Save(ctx context.Context, ns, name string, r io.Reader) (string, int64, string, error) {
	if strings.HasSuffix(name, s.failOn) {
		return "", 0, "", errors.New("bucket unavailable")
	}
	return s.ObjectStore.Save(ctx, ns, name, r)
}

// flakyKV fails the failOn-th Set across every namespace.
type flakyKV struct {
	kv.Gateway
	mu     sync.Mutex
	sets   int
	failOn int
}

func (g *flakyKV) Namespace(ns string) kv.Store {
	return &flakyStore{Store: g.Gateway.Namespace(ns), gw: g}
}

type flakyStore struct {
	kv.Store
	gw *flakyKV
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	s.gw.mu.Lock()
	s.gw.sets++
	fail := s.gw.sets == s.gw.failOn
	s.gw.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return s.Store.Set(ctx, key, value)
}

type fixture struct {
	pipeline *Pipeline
	llm      *fakeLLM
	preview  *fakePreviewer
	resumes  *resumes.Service
	store    object.ObjectStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := local.New(t.TempDir())
	svc := &resumes.Service{KV: kv.NewMemoryGateway()}
	fl := &fakeLLM{resp: llm.TextResponse(feedbackJSON)}
	img := []byte("png")
	fp := &fakePreviewer{result: convert.Result{Image: img, File: &convert.ImageFile{Name: "cv.png", MimeType: object.MimePNG, Data: img}}}
	return &fixture{
		pipeline: &Pipeline{
			Store:     store,
			Resumes:   svc,
			LLM:       fl,
			Previewer: fp,
			Now:       func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
			NewID:     func() string { return "11111111-2222-4333-8444-555555555555" },
		},
		llm:     fl,
		preview: fp,
		resumes: svc,
		store:   store,
	}
}

func pdfSubmission() Submission {
	return Submission{
		FileName:       "cv.pdf",
		Data:           []byte("%PDF-1.4\n%fake resume\n"),
		CompanyName:    "Acme",
		JobTitle:       "Backend Engineer",
		JobDescription: "Go services",
	}
}

func TestAnalyzePDFHappyPath(t *testing.T) {
	fx := newFixture(t)
	var statuses []string

	id, err := fx.pipeline.Analyze(context.Background(), "user-1", pdfSubmission(), func(s string) { statuses = append(statuses, s) })
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-4333-8444-555555555555", id)
	assert.Equal(t, []string{
		StatusUploading, StatusConverting, StatusUploadingImage, StatusPreparing,
		StatusAnalyzing, StatusSaving, StatusComplete,
	}, statuses)

	rec, err := fx.resumes.Fetch(context.Background(), "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, resumes.ShapeV2, rec.Shape)
	assert.True(t, rec.HasRaster())
	assert.True(t, strings.HasSuffix(rec.ImagePath, "_cv.png"))
	require.NotNil(t, rec.Feedback)
	assert.Equal(t, 72, rec.Feedback.OverallScore)
	assert.Equal(t, "Acme", rec.CompanyName)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), rec.CreatedAt)

	require.Len(t, fx.llm.docs, 1)
	assert.Equal(t, object.MimePDF, fx.llm.docs[0].MimeType)
	assert.Equal(t, rec.DocumentPath, fx.llm.docs[0].Path)
}

func TestAnalyzeTextSkipsPreview(t *testing.T) {
	fx := newFixture(t)
	sub := pdfSubmission()
	sub.FileName = "cv.txt"
	sub.Data = []byte("Ada Lovelace, Go engineer")

	id, err := fx.pipeline.Analyze(context.Background(), "user-1", sub, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, fx.preview.calls)

	rec, err := fx.resumes.Fetch(context.Background(), "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, rec.DocumentPath, rec.ImagePath)
	assert.False(t, rec.HasRaster())
	assert.Equal(t, "Ada Lovelace, Go engineer", fx.llm.docs[0].Text)
}

func TestAnalyzePreviewFailureFallsBackToDocument(t *testing.T) {
	fx := newFixture(t)
	fx.preview.result = convert.Result{Error: "render failed"}
	var statuses []string

	id, err := fx.pipeline.Analyze(context.Background(), "user-1", pdfSubmission(), func(s string) { statuses = append(statuses, s) })
	require.NoError(t, err)
	assert.NotContains(t, statuses, StatusUploadingImage)

	rec, err := fx.resumes.Fetch(context.Background(), "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, rec.DocumentPath, rec.ImagePath)
}

func TestAnalyzeImageUploadFailureFallsBackToDocument(t *testing.T) {
	fx := newFixture(t)
	fx.pipeline.Store = &failingStore{ObjectStore: fx.store, failOn: ".png"}

	id, err := fx.pipeline.Analyze(context.Background(), "user-1", pdfSubmission(), nil)
	require.NoError(t, err)
	rec, err := fx.resumes.Fetch(context.Background(), "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, rec.DocumentPath, rec.ImagePath)
}

func TestAnalyzeUploadFailureStopsEarly(t *testing.T) {
	fx := newFixture(t)
	fx.pipeline.Store = &failingStore{ObjectStore: fx.store, failOn: ".pdf"}
	var statuses []string

	_, err := fx.pipeline.Analyze(context.Background(), "user-1", pdfSubmission(), func(s string) { statuses = append(statuses, s) })
	require.Error(t, err)
	assert.True(t, errors.Is(err, resumes.ErrUpload))
	assert.Equal(t, []string{StatusUploading, "Error: Failed to upload file"}, statuses)
	assert.Equal(t, 0, fx.llm.calls)

	cards, err := fx.resumes.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestAnalyzeFailureKeepsRecordWithEmptyFeedback(t *testing.T) {
	cases := map[string]func(*fakeLLM){
		"provider error":  func(f *fakeLLM) { f.err = errors.New("quota exceeded") },
		"nil response":    func(f *fakeLLM) { f.resp = nil },
		"invalid json":    func(f *fakeLLM) { f.resp = llm.TextResponse("sorry, I cannot") },
		"schema mismatch": func(f *fakeLLM) { f.resp = llm.TextResponse(`{"overallScore":"high"}`) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(t)
			mutate(fx.llm)
			var statuses []string

			_, err := fx.pipeline.Analyze(context.Background(), "user-1", pdfSubmission(), func(s string) { statuses = append(statuses, s) })
			require.Error(t, err)
			assert.True(t, errors.Is(err, resumes.ErrAnalysis), err)
			assert.Equal(t, "Error: Failed to analyze resume", statuses[len(statuses)-1])
			assert.NotContains(t, statuses, StatusSaving)

			rec, err := fx.resumes.Fetch(context.Background(), "user-1", "11111111-2222-4333-8444-555555555555")
			require.NoError(t, err)
			assert.False(t, rec.HasFeedback())
		})
	}
}

func TestAnalyzePersistFailures(t *testing.T) {
	const id = "11111111-2222-4333-8444-555555555555"

	t.Run("placeholder write", func(t *testing.T) {
		fx := newFixture(t)
		gw := &flakyKV{Gateway: kv.NewMemoryGateway(), failOn: 1}
		fx.resumes.KV = gw
		var statuses []string

		_, err := fx.pipeline.Analyze(context.Background(), "user-1", pdfSubmission(), func(s string) { statuses = append(statuses, s) })
		require.Error(t, err)
		assert.True(t, errors.Is(err, resumes.ErrPersist), err)
		assert.Equal(t, 0, fx.llm.calls, "no analysis without a record")
		assert.NotContains(t, statuses, StatusAnalyzing)
		assert.NotContains(t, statuses, StatusComplete)

		_, err = fx.resumes.Fetch(context.Background(), "user-1", id)
		assert.True(t, errors.Is(err, resumes.ErrNotFound))
	})

	t.Run("final overwrite", func(t *testing.T) {
		fx := newFixture(t)
		gw := &flakyKV{Gateway: kv.NewMemoryGateway(), failOn: 2}
		fx.resumes.KV = gw
		var statuses []string

		_, err := fx.pipeline.Analyze(context.Background(), "user-1", pdfSubmission(), func(s string) { statuses = append(statuses, s) })
		require.Error(t, err)
		assert.True(t, errors.Is(err, resumes.ErrPersist), err)
		assert.Equal(t, 1, fx.llm.calls)
		assert.Contains(t, statuses, StatusSaving)
		assert.NotContains(t, statuses, StatusComplete)
		assert.Equal(t, "Error: Failed to save resume", statuses[len(statuses)-1])

		rec, err := fx.resumes.Fetch(context.Background(), "user-1", id)
		require.NoError(t, err)
		assert.False(t, rec.HasFeedback())
		assert.Equal(t, "Acme", rec.CompanyName)
	})
}

func TestAnalyzeAcceptsArrayContent(t *testing.T) {
	fx := newFixture(t)
	fx.llm.resp = &llm.Response{Message: llm.Message{Content: llm.Content{{Text: feedbackJSON}, {Text: "ignored"}}}}

	_, err := fx.pipeline.Analyze(context.Background(), "user-1", pdfSubmission(), nil)
	require.NoError(t, err)
}

func TestAnalyzeRejectsInvalidSubmissions(t *testing.T) {
	cases := map[string]func(*Submission){
		"missing company":  func(s *Submission) { s.CompanyName = "  " },
		"missing title":    func(s *Submission) { s.JobTitle = "" },
		"missing desc":     func(s *Submission) { s.JobDescription = "" },
		"empty file":       func(s *Submission) { s.Data = nil },
		"unsupported type": func(s *Submission) { s.FileName = "cv.exe" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(t)
			sub := pdfSubmission()
			mutate(&sub)
			var statuses []string

			_, err := fx.pipeline.Analyze(context.Background(), "user-1", sub, func(s string) { statuses = append(statuses, s) })
			require.Error(t, err)
			assert.True(t, errors.Is(err, resumes.ErrInvalidInput))
			assert.Empty(t, statuses)
			var verr *resumes.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.Errors)
		})
	}
}

func TestAnalyzeRejectsOversizedFile(t *testing.T) {
	fx := newFixture(t)
	fx.pipeline.MaxUploadBytes = 8
	_, err := fx.pipeline.Analyze(context.Background(), "user-1", pdfSubmission(), nil)
	assert.True(t, errors.Is(err, ErrFileTooLarge))
	assert.True(t, errors.Is(err, resumes.ErrInvalidInput))
}

func TestGuardAllowsOneSubmissionPerOwner(t *testing.T) {
	g := NewGuard()
	release, ok := g.Acquire("u1")
	require.True(t, ok)
	_, ok = g.Acquire("u1")
	assert.False(t, ok)
	_, ok = g.Acquire("u2")
	assert.True(t, ok)

	release()
	release()
	_, ok = g.Acquire("u1")
	assert.True(t, ok)
}
