// Package intake runs the upload, persist, analyze, persist sequence for a
// new resume and reports progress as it goes.
package intake

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumaid/internal/convert"
	"resumaid/internal/extract"
	"resumaid/internal/llm"
	"resumaid/internal/resumes"
	"resumaid/internal/shared/metrics"
	"resumaid/internal/shared/storage/object"
	"resumaid/internal/shared/telemetry"
)

// Progress statuses, in the order they are reported.
const (
	StatusUploading      = "Uploading the file..."
	StatusConverting     = "Converting to image..."
	StatusUploadingImage = "Uploading the image..."
	StatusPreparing      = "Preparing data..."
	StatusAnalyzing      = "Analyzing..."
	StatusSaving         = "Saving feedback..."
	StatusComplete       = "Analysis complete, redirecting..."
)

// User-visible failure messages.
const (
	msgUploadFailed   = "Error: Failed to upload file"
	msgAnalysisFailed = "Error: Failed to analyze resume"
)

// Previewer renders a PDF preview image.
type Previewer interface {
	Convert(ctx context.Context, fileName string, data []byte) convert.Result
}

// Pipeline wires the intake steps to their collaborators.
type Pipeline struct {
	Store          object.ObjectStore
	Resumes        *resumes.Service
	LLM            llm.Client
	Previewer      Previewer
	MaxUploadBytes int64
	Now            func() time.Time
	NewID          func() string
}

// Analyze runs the pipeline and returns the new record id. progress, when not
// nil, receives each status and, on failure, the error message. Steps run
// strictly in order and a failure leaves already persisted state in place.
func (p *Pipeline) Analyze(ctx context.Context, owner string, sub Submission, progress func(string)) (string, error) {
	report := func(status string) {
		if progress != nil {
			progress(status)
		}
	}
	fields := map[string]any{"user_id": owner, "file_name": sub.FileName}

	if err := sub.Validate(p.maxUploadBytes()); err != nil {
		metrics.IncIntakeRejected()
		telemetry.Warn("intake.rejected", map[string]any{"user_id": owner, "error": err})
		return "", err
	}

	start := time.Now()
	metrics.IncIntakeStarted()
	fail := func(step string, err error) (string, error) {
		metrics.IncIntakeFailed()
		fields["step"] = step
		fields["error"] = err
		if cause := errorCause(err); cause != "" {
			fields["cause"] = cause
		}
		telemetry.Error("intake.failed", fields)
		report(err.Error())
		return "", err
	}

	report(StatusUploading)
	docKey, size, mime, err := p.Store.Save(ctx, owner, sub.FileName, bytes.NewReader(sub.Data))
	if err != nil || strings.TrimSpace(docKey) == "" {
		return fail("upload", resumes.NewError(resumes.ErrUpload, msgUploadFailed, err))
	}
	fields["document_key"] = docKey
	fields["size_bytes"] = size

	imagePath := p.preview(ctx, owner, sub, mime, docKey, report)

	report(StatusPreparing)
	rec := resumes.Record{
		ID:             p.newID(),
		DocumentPath:   docKey,
		ImagePath:      imagePath,
		CompanyName:    sub.CompanyName,
		JobTitle:       sub.JobTitle,
		JobDescription: sub.JobDescription,
		CreatedAt:      p.now(),
	}
	fields["resume_id"] = rec.ID
	if err := p.Resumes.Save(ctx, owner, rec); err != nil {
		return fail("persist", err)
	}

	report(StatusAnalyzing)
	doc := llm.Document{Path: docKey, FileName: sub.FileName, MimeType: mime, Data: sub.Data}
	if text, err := extract.Text(ctx, sub.Data, mime, sub.FileName); err == nil {
		doc.Text = text
	} else {
		telemetry.Warn("intake.extract_failed", map[string]any{"resume_id": rec.ID, "mime": mime, "error": err})
	}
	resp, err := p.LLM.Feedback(ctx, doc, llm.Instructions(sub.JobTitle, sub.JobDescription))
	if err != nil || resp == nil {
		return fail("analyze", resumes.NewError(resumes.ErrAnalysis, msgAnalysisFailed, err))
	}
	text, err := resp.Text()
	if err != nil {
		return fail("analyze", resumes.NewError(resumes.ErrAnalysis, msgAnalysisFailed, err))
	}
	feedback, err := resumes.ParseFeedback(text)
	if err != nil {
		return fail("analyze", err)
	}

	report(StatusSaving)
	rec.Feedback = feedback
	if err := p.Resumes.Save(ctx, owner, rec); err != nil {
		return fail("persist_feedback", err)
	}

	report(StatusComplete)
	metrics.IncIntakeCompleted()
	metrics.ObserveIntakeDurationMs(metrics.SinceMillis(start))
	fields["overall_score"] = feedback.OverallScore
	telemetry.Info("intake.completed", fields)
	return rec.ID, nil
}

// preview converts and stores a PDF preview. Any failure falls back to the
// document key.
func (p *Pipeline) preview(ctx context.Context, owner string, sub Submission, mime, docKey string, report func(string)) string {
	if p.Previewer == nil || !strings.HasPrefix(mime, object.MimePDF) {
		return docKey
	}

	report(StatusConverting)
	res := p.Previewer.Convert(ctx, sub.FileName, sub.Data)
	if !res.OK() || res.File == nil {
		metrics.IncConversionFailed()
		telemetry.Warn("intake.preview_failed", map[string]any{"user_id": owner, "document_key": docKey, "error": res.Error})
		return docKey
	}

	report(StatusUploadingImage)
	imageKey, _, _, err := p.Store.Save(ctx, owner, res.File.Name, bytes.NewReader(res.Image))
	if err != nil || strings.TrimSpace(imageKey) == "" {
		telemetry.Warn("intake.preview_upload_failed", map[string]any{"user_id": owner, "document_key": docKey, "error": err})
		return docKey
	}
	return imageKey
}

func (p *Pipeline) maxUploadBytes() int64 {
	if p.MaxUploadBytes > 0 {
		return p.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *Pipeline) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}

func errorCause(err error) string {
	var rerr *resumes.Error
	if !errors.As(err, &rerr) || rerr.Err == nil {
		return ""
	}
	return rerr.Err.Error()
}
