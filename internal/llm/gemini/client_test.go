package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumaid/internal/llm"
)

func TestExtractTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"overallScore":`), genai.Text(`80}`)}},
		}},
	}
	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"overallScore":80}`, text)
}

func TestExtractTextFromResponseErrors(t *testing.T) {
	_, err := extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no candidates")

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.ErrorContains(t, err, "no content")

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}},
	}}})
	assert.ErrorContains(t, err, "no text parts")
}

func TestDocumentParts(t *testing.T) {
	parts, err := documentParts(llm.Document{MimeType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	blob, ok := parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", blob.MIMEType)

	parts, err = documentParts(llm.Document{FileName: "cv.txt", MimeType: "text/plain", Data: []byte("hi"), Text: "hi"})
	require.NoError(t, err)
	text, ok := parts[0].(genai.Text)
	require.True(t, ok)
	assert.Contains(t, string(text), "hi")

	_, err = documentParts(llm.Document{FileName: "empty.docx"})
	assert.Error(t, err)
}
