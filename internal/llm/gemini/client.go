// Package gemini sends the uploaded document inline to Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"resumaid/internal/llm"
)

// Client implements llm.Client using the Gemini API. PDFs are sent as inline
// blobs; other formats fall back to extracted text.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Feedback generates JSON feedback for doc.
func (c *Client) Feedback(ctx context.Context, doc llm.Document, instructions string) (*llm.Response, error) {
	parts, err := documentParts(doc)
	if err != nil {
		return nil, err
	}
	parts = append(parts, genai.Text(instructions))

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}
	return llm.TextResponse(text), nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func documentParts(doc llm.Document) ([]genai.Part, error) {
	if len(doc.Data) > 0 && strings.HasPrefix(doc.MimeType, "application/pdf") {
		return []genai.Part{genai.Blob{MIMEType: "application/pdf", Data: doc.Data}}, nil
	}
	if text := strings.TrimSpace(doc.Text); text != "" {
		return []genai.Part{genai.Text("Resume (" + doc.FileName + "):\n\n" + text)}, nil
	}
	return nil, errors.New("gemini: document has neither pdf bytes nor text")
}

// extractTextFromResponse joins the text parts of the first candidate.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

var _ llm.Client = (*Client)(nil)
