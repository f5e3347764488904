package intake

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumaid/internal/resumes"
	"resumaid/internal/shared/server/middleware"
	"resumaid/internal/shared/server/respond"
)

// multipartOverhead leaves room for form fields beyond the file itself.
const multipartOverhead = 1 << 20

// Handler exposes the intake pipeline over HTTP.
type Handler struct {
	Pipeline *Pipeline
	Guard    *Guard
}

// NewHandler constructs a Handler.
func NewHandler(p *Pipeline, g *Guard) *Handler {
	if g == nil {
		g = NewGuard()
	}
	return &Handler{Pipeline: p, Guard: g}
}

// RegisterRoutes attaches intake routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes", h.submit)
}

type submitResponse struct {
	ID       string   `json:"id"`
	Redirect string   `json:"redirect"`
	Statuses []string `json:"statuses"`
}

func (h *Handler) submit(c *gin.Context) {
	owner := middleware.UserIDFromContext(c)
	limit := h.Pipeline.maxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	sub, ok := readSubmission(c, limit)
	if !ok {
		return
	}

	release, ok := h.Guard.Acquire(owner)
	if !ok {
		respond.Error(c, http.StatusConflict, "analysis_in_progress", "an analysis is already running for this account", nil)
		return
	}
	defer release()

	if wantsStream(c) {
		h.stream(c, owner, sub)
		return
	}

	var statuses []string
	id, err := h.Pipeline.Analyze(c.Request.Context(), owner, sub, func(status string) {
		c.Set(middleware.IntakeStepKey, status)
		statuses = append(statuses, status)
	})
	if err != nil {
		status, code := errorStatus(err)
		respond.Error(c, status, code, err.Error(), errorDetails(err, statuses))
		return
	}
	c.Set(middleware.ResumeIDKey, id)
	respond.JSON(c, http.StatusCreated, submitResponse{ID: id, Redirect: redirectFor(id), Statuses: statuses})
}

func (h *Handler) stream(c *gin.Context, owner string, sub Submission) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	id, err := h.Pipeline.Analyze(c.Request.Context(), owner, sub, func(status string) {
		c.Set(middleware.IntakeStepKey, status)
		c.SSEvent("status", gin.H{"message": status})
		c.Writer.Flush()
	})
	if err != nil {
		_, code := errorStatus(err)
		c.SSEvent("error", gin.H{"code": code, "message": err.Error()})
		c.Writer.Flush()
		return
	}
	c.Set(middleware.ResumeIDKey, id)
	c.SSEvent("complete", gin.H{"id": id, "redirect": redirectFor(id)})
	c.Writer.Flush()
}

func readSubmission(c *gin.Context, limit int64) (Submission, bool) {
	sub := Submission{
		CompanyName:    c.PostForm("companyName"),
		JobTitle:       c.PostForm("jobTitle"),
		JobDescription: c.PostForm("jobDescription"),
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the "+resumes.FormatSize(limit)+" limit", nil)
			return sub, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", []resumes.FieldError{{Field: "file", Message: "is required"}})
		return sub, false
	}
	if fileHeader.Size > limit {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the "+resumes.FormatSize(limit)+" limit", nil)
		return sub, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return sub, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return sub, false
	}
	sub.FileName = fileHeader.Filename
	sub.Data = data
	return sub, true
}

func wantsStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

func redirectFor(id string) string {
	return "/resume/" + id
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, resumes.ErrInvalidInput):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, resumes.ErrUpload):
		return http.StatusBadGateway, "upload_failed"
	case errors.Is(err, resumes.ErrPersist):
		return http.StatusInternalServerError, "persist_failed"
	case errors.Is(err, resumes.ErrAnalysis):
		return http.StatusBadGateway, "analysis_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorDetails(err error, statuses []string) any {
	var verr *resumes.ValidationError
	if errors.As(err, &verr) && errors.Is(err, resumes.ErrInvalidInput) {
		return verr.Errors
	}
	if len(statuses) == 0 {
		return nil
	}
	return gin.H{"statuses": statuses}
}
