package resumes

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// TipType classifies a tip.
type TipType string

const (
	TipGood    TipType = "good"
	TipImprove TipType = "improve"
)

// Tip is a single piece of analysis feedback.
type Tip struct {
	Type        TipType `json:"type"`
	Tip         string  `json:"tip"`
	Explanation string  `json:"explanation,omitempty"`
}

// Category holds a score and its tips.
type Category struct {
	Score int   `json:"score"`
	Tips  []Tip `json:"tips"`
}

// Feedback is the structured analysis result stored with a record.
type Feedback struct {
	OverallScore int      `json:"overallScore"`
	ATS          Category `json:"ATS"`
	ToneAndStyle Category `json:"toneAndStyle"`
	Content      Category `json:"content"`
	Structure    Category `json:"structure"`
	Skills       Category `json:"skills"`
}

// UnmarshalJSON accepts whole-number floats such as 82.0 for the score.
func (c *Category) UnmarshalJSON(data []byte) error {
	type plain Category
	var aux struct {
		plain
		Score json.Number `json:"score"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	score, err := wholeScore(aux.Score)
	if err != nil {
		return err
	}
	*c = Category(aux.plain)
	c.Score = score
	return nil
}

// UnmarshalJSON accepts whole-number floats such as 82.0 for the overall score.
func (f *Feedback) UnmarshalJSON(data []byte) error {
	type plain Feedback
	var aux struct {
		plain
		OverallScore json.Number `json:"overallScore"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	score, err := wholeScore(aux.OverallScore)
	if err != nil {
		return err
	}
	*f = Feedback(aux.plain)
	f.OverallScore = score
	return nil
}

func wholeScore(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	v, err := n.Float64()
	if err != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("score %s is not a whole number", n)
	}
	return int(v), nil
}

// Section is a titled category used by detail views.
type Section struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Score int    `json:"score"`
	Badge string `json:"badge"`
	Tips  []Tip  `json:"tips"`
}

// Sections returns the detail categories in display order. ATS is reported separately.
func (f *Feedback) Sections() []Section {
	if f == nil {
		return nil
	}
	build := func(key, title string, c Category) Section {
		return Section{Key: key, Title: title, Score: c.Score, Badge: Badge(c.Score), Tips: c.Tips}
	}
	return []Section{
		build("toneAndStyle", "Tone & Style", f.ToneAndStyle),
		build("content", "Content", f.Content),
		build("structure", "Structure", f.Structure),
		build("skills", "Skills", f.Skills),
	}
}

// Badge labels a score: above 70 is strong, above 49 a good start.
func Badge(score int) string {
	switch {
	case score > 70:
		return "Strong"
	case score > 49:
		return "Good start"
	default:
		return "Needs work"
	}
}

const feedbackSchema = `{
  "type": "object",
  "required": ["overallScore", "ATS", "toneAndStyle", "content", "structure", "skills"],
  "definitions": {
    "score": {"type": "integer", "minimum": 0, "maximum": 100},
    "tip": {
      "type": "object",
      "required": ["type", "tip"],
      "properties": {
        "type": {"type": "string", "enum": ["good", "improve"]},
        "tip": {"type": "string"},
        "explanation": {"type": "string"}
      }
    },
    "category": {
      "type": "object",
      "required": ["score", "tips"],
      "properties": {
        "score": {"$ref": "#/definitions/score"},
        "tips": {"type": "array", "items": {"$ref": "#/definitions/tip"}}
      }
    }
  },
  "properties": {
    "overallScore": {"$ref": "#/definitions/score"},
    "ATS": {"$ref": "#/definitions/category"},
    "toneAndStyle": {"$ref": "#/definitions/category"},
    "content": {"$ref": "#/definitions/category"},
    "structure": {"$ref": "#/definitions/category"},
    "skills": {"$ref": "#/definitions/category"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(feedbackSchema))
	})
	return compiledSchema, schemaErr
}

// FieldError describes one schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every schema violation in a feedback document.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "feedback validation failed: " + strings.Join(parts, "; ")
}

// ParseFeedback validates model output against the feedback schema and decodes it.
// Markdown code fences around the JSON are tolerated.
func ParseFeedback(text string) (*Feedback, error) {
	cleaned := CleanJSONBlock(text)
	if cleaned == "" {
		return nil, NewError(ErrAnalysis, "Error: Failed to analyze resume", fmt.Errorf("empty feedback"))
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("compile feedback schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return nil, NewError(ErrAnalysis, "Error: Failed to analyze resume", fmt.Errorf("feedback is not json: %w", err))
	}
	if !result.Valid() {
		verr := &ValidationError{}
		for _, re := range result.Errors() {
			verr.Errors = append(verr.Errors, FieldError{Field: re.Field(), Message: re.Description()})
		}
		return nil, NewError(ErrAnalysis, "Error: Failed to analyze resume", verr)
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(cleaned), &fb); err != nil {
		return nil, NewError(ErrAnalysis, "Error: Failed to analyze resume", fmt.Errorf("decode feedback: %w", err))
	}
	return &fb, nil
}

// CleanJSONBlock strips a surrounding markdown code fence.
func CleanJSONBlock(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```JSON")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}
