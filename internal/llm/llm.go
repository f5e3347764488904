// Package llm defines the feedback gateway used to analyze uploaded resumes.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Client abstracts LLM providers for resume feedback.
type Client interface {
	Feedback(ctx context.Context, doc Document, instructions string) (*Response, error)
}

// Document references the uploaded file. Providers that accept files read Data;
// text-only providers read Text.
type Document struct {
	Path     string
	FileName string
	MimeType string
	Data     []byte
	Text     string
}

// Part is one element of an array-shaped message content.
type Part struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// Content is either a plain string or a list of parts on the wire.
type Content []Part

// UnmarshalJSON accepts a string or an array of parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = Content{{Type: "text", Text: s}}
		return nil
	}
	var parts []Part
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return fmt.Errorf("message content: %w", err)
	}
	*c = parts
	return nil
}

// Message is the provider reply.
type Message struct {
	Content Content `json:"content"`
}

// Response wraps the provider reply.
type Response struct {
	Message Message `json:"message"`
}

// TextResponse builds a response carrying a single text part.
func TextResponse(text string) *Response {
	return &Response{Message: Message{Content: Content{{Type: "text", Text: text}}}}
}

// Text returns the first part's text, which carries the feedback JSON.
func (r *Response) Text() (string, error) {
	if r == nil {
		return "", ErrEmptyResponse
	}
	if len(r.Message.Content) == 0 || strings.TrimSpace(r.Message.Content[0].Text) == "" {
		return "", ErrEmptyResponse
	}
	return r.Message.Content[0].Text, nil
}

var (
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("LLM not implemented")
	// ErrEmptyResponse is returned when a reply carries no text.
	ErrEmptyResponse = errors.New("empty feedback response")
)

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Feedback returns ErrNotImplemented.
func (PlaceholderClient) Feedback(ctx context.Context, doc Document, instructions string) (*Response, error) {
	_ = ctx
	_ = doc
	_ = instructions
	return nil, ErrNotImplemented
}
