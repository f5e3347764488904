package intake

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"resumaid/internal/resumes"
)

// DefaultMaxUploadBytes caps uploads at 10 MB.
const DefaultMaxUploadBytes = 10_000_000

// ErrFileTooLarge is matched in addition to resumes.ErrInvalidInput for oversized uploads.
var ErrFileTooLarge = errors.New("file too large")

// AcceptedExtensions lists the upload types the pipeline takes.
var AcceptedExtensions = []string{".pdf", ".doc", ".docx", ".txt"}

// Submission is one resume upload with its job context.
type Submission struct {
	FileName       string `validate:"required,resumeext"`
	Data           []byte `validate:"min=1"`
	CompanyName    string `validate:"required"`
	JobTitle       string `validate:"required"`
	JobDescription string `validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("resumeext", func(fl validator.FieldLevel) bool {
		ext := strings.ToLower(filepath.Ext(fl.Field().String()))
		for _, ok := range AcceptedExtensions {
			if ext == ok {
				return true
			}
		}
		return false
	})
	return v
}

// normalize trims the text fields in place.
func (s *Submission) normalize() {
	s.FileName = strings.TrimSpace(s.FileName)
	s.CompanyName = strings.TrimSpace(s.CompanyName)
	s.JobTitle = strings.TrimSpace(s.JobTitle)
	s.JobDescription = strings.TrimSpace(s.JobDescription)
}

// Validate checks required fields, accepted extension and size limit.
func (s *Submission) Validate(maxBytes int64) error {
	s.normalize()
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return resumes.NewError(resumes.ErrInvalidInput, "invalid submission", err)
		}
		detail := &resumes.ValidationError{}
		for _, fe := range verrs {
			detail.Errors = append(detail.Errors, FieldIssue(fe))
		}
		return resumes.NewError(resumes.ErrInvalidInput, "missing or invalid fields", detail)
	}
	if maxBytes > 0 && int64(len(s.Data)) > maxBytes {
		return resumes.NewError(resumes.ErrInvalidInput,
			fmt.Sprintf("file exceeds the %s limit", resumes.FormatSize(maxBytes)), ErrFileTooLarge)
	}
	return nil
}

// FieldIssue renders one validator failure as a field error.
func FieldIssue(fe validator.FieldError) resumes.FieldError {
	field := lowerFirst(fe.Field())
	if field == "data" {
		field = "file"
	}
	switch fe.Tag() {
	case "required", "min":
		return resumes.FieldError{Field: field, Message: "is required"}
	case "resumeext":
		return resumes.FieldError{Field: field, Message: "must be one of " + strings.Join(AcceptedExtensions, ", ")}
	default:
		return resumes.FieldError{Field: field, Message: "failed " + fe.Tag()}
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
