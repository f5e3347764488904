package resumes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Key prefixes. Records are written under KeyPrefix; LegacyKeyPrefix is read only.
const (
	KeyPrefix         = "resume-"
	LegacyKeyPrefix   = "resume:"
	ListPattern       = KeyPrefix + "*"
	LegacyListPattern = LegacyKeyPrefix + "*"
)

// Shape identifies which stored layout a record was decoded from.
type Shape int

const (
	// ShapeV2 records carry "file" and embedded feedback.
	ShapeV2 Shape = iota + 1
	// ShapeV1 records carry "resumePath" and may point at a feedback blob via "feedbackPath".
	ShapeV1
)

func (s Shape) String() string {
	switch s {
	case ShapeV2:
		return "v2"
	case ShapeV1:
		return "v1"
	default:
		return "unknown"
	}
}

// Record is the normalized resume record. Consumers never look at stored field
// names; Decode resolves them once.
type Record struct {
	ID             string
	DocumentPath   string
	ImagePath      string
	CompanyName    string
	JobTitle       string
	JobDescription string
	FeedbackPath   string
	Feedback       *Feedback
	// FeedbackErr is set when embedded feedback was present but unreadable.
	FeedbackErr error
	CreatedAt   time.Time
	Shape       Shape
}

// HasFeedback reports whether analysis results are available inline.
func (r Record) HasFeedback() bool {
	return r.Feedback != nil
}

// HasRaster reports whether ImagePath names a preview distinct from the document.
func (r Record) HasRaster() bool {
	return r.ImagePath != "" && r.ImagePath != r.DocumentPath
}

// Key returns the storage key for id.
func Key(id string) string {
	return KeyPrefix + id
}

// LegacyKey returns the legacy storage key for id.
func LegacyKey(id string) string {
	return LegacyKeyPrefix + id
}

// IDFromKey extracts the record id from either key form.
func IDFromKey(key string) (string, bool) {
	for _, prefix := range []string{KeyPrefix, LegacyKeyPrefix} {
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return key[len(prefix):], true
		}
	}
	return "", false
}

type storedRecord struct {
	ID             string          `json:"id"`
	File           string          `json:"file,omitempty"`
	ResumePath     string          `json:"resumePath,omitempty"`
	ImagePath      string          `json:"imagePath,omitempty"`
	CompanyName    string          `json:"companyName"`
	JobTitle       string          `json:"jobTitle"`
	JobDescription string          `json:"jobDescription"`
	FeedbackPath   string          `json:"feedbackPath,omitempty"`
	Feedback       json.RawMessage `json:"feedback"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"`
}

// Decode parses a stored record of either shape. Only malformed JSON is an
// error; a record naming no document decodes with an empty DocumentPath.
func Decode(raw []byte) (Record, error) {
	var stored storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Record{}, fmt.Errorf("decode resume record: %w", err)
	}

	rec := Record{
		ID:             stored.ID,
		ImagePath:      stored.ImagePath,
		CompanyName:    stored.CompanyName,
		JobTitle:       stored.JobTitle,
		JobDescription: stored.JobDescription,
		FeedbackPath:   stored.FeedbackPath,
		Shape:          ShapeV2,
	}
	if stored.CreatedAt != nil {
		rec.CreatedAt = stored.CreatedAt.UTC()
	}

	switch {
	case stored.File != "":
		rec.DocumentPath = stored.File
	case stored.ResumePath != "":
		rec.DocumentPath = stored.ResumePath
		rec.Shape = ShapeV1
	case stored.FeedbackPath != "":
		rec.Shape = ShapeV1
	}

	if !emptyFeedback(stored.Feedback) {
		var fb Feedback
		if err := json.Unmarshal(stored.Feedback, &fb); err != nil {
			rec.FeedbackErr = fmt.Errorf("decode embedded feedback: %w", err)
		} else {
			rec.Feedback = &fb
		}
	}
	return rec, nil
}

// Encode writes the record in the current shape. Missing feedback is stored as {}.
func Encode(rec Record) ([]byte, error) {
	stored := storedRecord{
		ID:             rec.ID,
		File:           rec.DocumentPath,
		ImagePath:      rec.ImagePath,
		CompanyName:    rec.CompanyName,
		JobTitle:       rec.JobTitle,
		JobDescription: rec.JobDescription,
		Feedback:       json.RawMessage(`{}`),
	}
	if !rec.CreatedAt.IsZero() {
		created := rec.CreatedAt.UTC()
		stored.CreatedAt = &created
	}
	if rec.Feedback != nil {
		fb, err := json.Marshal(rec.Feedback)
		if err != nil {
			return nil, fmt.Errorf("encode feedback: %w", err)
		}
		stored.Feedback = fb
	}
	return json.Marshal(stored)
}

func emptyFeedback(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err == nil && len(probe) == 0 {
		return true
	}
	return false
}
