// Package hydrate rebuilds a viewable resume from storage: the document,
// its feedback and a preview thumbnail, each resolved independently.
package hydrate

import (
	"context"
	"errors"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"resumaid/internal/artifacts"
	"resumaid/internal/resumes"
	"resumaid/internal/shared/metrics"
	"resumaid/internal/shared/storage/object"
	"resumaid/internal/shared/telemetry"
)

// PlaceholderThumbnail is used when no raster preview is available.
const PlaceholderThumbnail = "document"

const defaultMaxBlobBytes = 25 << 20

// Sub-result names used in problems.
const (
	PartDocument  = "document"
	PartFeedback  = "feedback"
	PartThumbnail = "thumbnail"
)

// Problem records a sub-result that could not be resolved.
type Problem struct {
	Part    string `json:"part"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Summary is the headline score block.
type Summary struct {
	OverallScore int               `json:"overallScore"`
	Badge        string            `json:"badge"`
	ATS          resumes.Category  `json:"ATS"`
	Sections     []resumes.Section `json:"sections"`
}

// View is the hydrated detail state for one record.
type View struct {
	ID               string            `json:"id"`
	ViewID           string            `json:"viewId"`
	Shape            string            `json:"shape"`
	CompanyName      string            `json:"companyName,omitempty"`
	JobTitle         string            `json:"jobTitle,omitempty"`
	JobDescription   string            `json:"jobDescription,omitempty"`
	DocumentURL      string            `json:"documentUrl,omitempty"`
	DocumentMimeType string            `json:"documentMimeType,omitempty"`
	ThumbnailURL     string            `json:"thumbnailUrl,omitempty"`
	Thumbnail        string            `json:"thumbnail"`
	Feedback         *resumes.Feedback `json:"feedback,omitempty"`
	Summary          *Summary          `json:"summary,omitempty"`
	Problems         []Problem         `json:"problems,omitempty"`
}

// Loader hydrates records for the detail view.
type Loader struct {
	Resumes      *resumes.Service
	Store        object.ObjectStore
	Registry     *artifacts.Registry
	MaxBlobBytes int64
}

// Load fetches the record for id and resolves its document, feedback and
// thumbnail concurrently. A failing sub-result never blocks the others; it is
// reported in View.Problems. Transient URLs are registered in the scope for
// viewKey, replacing any earlier load of the same view.
func (l *Loader) Load(ctx context.Context, owner, viewKey, id string) (*View, error) {
	metrics.IncHydrationLoad()
	rec, err := l.Resumes.Fetch(ctx, owner, id)
	if err != nil {
		if errors.Is(err, resumes.ErrNotFound) {
			metrics.IncHydrationNotFound()
		}
		return nil, err
	}

	view := &View{
		ID:             rec.ID,
		Shape:          rec.Shape.String(),
		CompanyName:    rec.CompanyName,
		JobTitle:       rec.JobTitle,
		JobDescription: rec.JobDescription,
		Thumbnail:      PlaceholderThumbnail,
	}
	scope := l.Registry.Acquire(viewKey)

	var docProblem, feedbackProblem, thumbProblem *Problem
	var g errgroup.Group
	g.Go(func() error {
		docProblem = l.loadDocument(ctx, scope, rec, view)
		return nil
	})
	g.Go(func() error {
		feedbackProblem = l.loadFeedback(ctx, rec, view)
		return nil
	})
	g.Go(func() error {
		thumbProblem = l.loadThumbnail(ctx, scope, rec, view)
		return nil
	})
	_ = g.Wait()

	for _, p := range []*Problem{docProblem, feedbackProblem, thumbProblem} {
		if p != nil {
			view.Problems = append(view.Problems, *p)
		}
	}
	if view.Feedback != nil {
		view.Summary = &Summary{
			OverallScore: view.Feedback.OverallScore,
			Badge:        resumes.Badge(view.Feedback.OverallScore),
			ATS:          view.Feedback.ATS,
			Sections:     view.Feedback.Sections(),
		}
	}

	metrics.AddHydrationProblems(len(view.Problems))
	if len(view.Problems) > 0 {
		telemetry.Warn("hydrate.partial", map[string]any{"resume_id": rec.ID, "user_id": owner, "problems": len(view.Problems)})
	}
	return view, nil
}

func (l *Loader) loadDocument(ctx context.Context, scope *artifacts.Scope, rec resumes.Record, view *View) *Problem {
	data, err := l.read(ctx, rec.DocumentPath)
	if err != nil {
		return blobProblem(PartDocument, "Failed to read resume document", err)
	}
	mime := documentMime(rec.DocumentPath, data)
	ref, err := scope.Register(data, mime)
	if err != nil {
		return &Problem{Part: PartDocument, Code: "superseded", Message: err.Error()}
	}
	view.DocumentURL = ref.URL
	view.DocumentMimeType = mime
	return nil
}

func (l *Loader) loadFeedback(ctx context.Context, rec resumes.Record, view *View) *Problem {
	if rec.Feedback != nil {
		view.Feedback = rec.Feedback
		return nil
	}
	if rec.FeedbackErr != nil {
		return &Problem{Part: PartFeedback, Code: "feedback_invalid", Message: "Stored feedback could not be read"}
	}
	if strings.TrimSpace(rec.FeedbackPath) == "" {
		return nil
	}

	data, err := l.read(ctx, rec.FeedbackPath)
	if err != nil {
		return blobProblem(PartFeedback, "Failed to read feedback", err)
	}
	fb, err := resumes.ParseFeedback(string(data))
	if err != nil {
		return &Problem{Part: PartFeedback, Code: "feedback_invalid", Message: "Stored feedback could not be read"}
	}
	view.Feedback = fb
	return nil
}

func (l *Loader) loadThumbnail(ctx context.Context, scope *artifacts.Scope, rec resumes.Record, view *View) *Problem {
	if !rec.HasRaster() {
		return nil
	}
	data, err := l.read(ctx, rec.ImagePath)
	if err != nil {
		return blobProblem(PartThumbnail, "Failed to read preview image", err)
	}
	mime := object.DetectMIME(rec.ImagePath, head(data))
	ref, err := scope.Register(data, mime)
	if err != nil {
		return &Problem{Part: PartThumbnail, Code: "superseded", Message: err.Error()}
	}
	view.ThumbnailURL = ref.URL
	view.Thumbnail = "image"
	return nil
}

func (l *Loader) read(ctx context.Context, key string) ([]byte, error) {
	limit := l.MaxBlobBytes
	if limit <= 0 {
		limit = defaultMaxBlobBytes
	}
	data, err := object.ReadAll(ctx, l.Store, key, limit)
	if err != nil {
		return nil, resumes.NewError(resumes.ErrBlobRead, "blob read failed", err)
	}
	return data, nil
}

// documentMime tags PDFs as application/pdf and sniffs everything else.
func documentMime(key string, data []byte) string {
	if strings.EqualFold(path.Ext(key), ".pdf") {
		return object.MimePDF
	}
	return object.DetectMIME(key, head(data))
}

func head(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}

func blobProblem(part, message string, err error) *Problem {
	code := "blob_read"
	if errors.Is(err, object.ErrNotFound) {
		code = "blob_missing"
	}
	return &Problem{Part: part, Code: code, Message: message}
}
