// Package google provides a model.ChatModel adapter for Google's Gemini API.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/flowsim/graph/model"
)

// DefaultModel is used when NewChatModel is given an empty model name.
const DefaultModel = "gemini-2.5-flash"

// ChatModel implements model.ChatModel for Google's Gemini API.
//
// Example usage:
//
//	m := google.NewChatModel(os.Getenv("GOOGLE_API_KEY"), "")
//	out, err := m.Chat(ctx, messages)
//	var safetyErr *google.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//	    log.Printf("content blocked: %s", safetyErr.Category())
//	}
type ChatModel struct {
	modelName string
	client    generator
}

// generator performs one GenerateContent call. It allows for easy mocking
// in tests.
type generator interface {
	generate(ctx context.Context, modelName, system string, parts []genai.Part) (*genai.GenerateContentResponse, error)
}

// NewChatModel creates a ChatModel using apiKey. An empty modelName selects
// DefaultModel.
func NewChatModel(apiKey, modelName string) *ChatModel {
	return newChatModel(&defaultClient{apiKey: apiKey}, modelName)
}

func newChatModel(client generator, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &ChatModel{modelName: modelName, client: client}
}

// Chat implements model.ChatModel. System messages become the model's
// system instruction; the remaining messages are sent as text parts.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	system, conversation := model.SplitSystem(messages)
	parts := make([]genai.Part, 0, len(conversation))
	for _, msg := range conversation {
		parts = append(parts, genai.Text(msg.Content))
	}
	if len(parts) == 0 {
		return model.ChatOut{}, errors.New("google: at least one non-system message is required")
	}

	resp, err := m.client.generate(ctx, m.modelName, system, parts)
	if err != nil {
		return model.ChatOut{}, err
	}
	return convertResponse(resp)
}

// defaultClient wraps the official Google Gemini SDK client.
type defaultClient struct {
	apiKey string
}

func (c *defaultClient) generate(ctx context.Context, modelName, system string, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() { _ = client.Close() }()

	genModel := client.GenerativeModel(modelName)
	if system != "" {
		genModel.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := genModel.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}
	return resp, nil
}

// convertResponse joins the text parts of the first candidate. A candidate
// stopped by the safety filter yields a *SafetyFilterError.
func convertResponse(resp *genai.GenerateContentResponse) (model.ChatOut, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return model.ChatOut{}, nil
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		category := "unknown"
		for _, rating := range candidate.SafetyRatings {
			if rating.Blocked {
				category = rating.Category.String()
				break
			}
		}
		return model.ChatOut{}, &SafetyFilterError{reason: "SAFETY", category: category}
	}
	if candidate.Content == nil {
		return model.ChatOut{}, nil
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			texts = append(texts, string(t))
		}
	}
	return model.ChatOut{Text: strings.Join(texts, "\n")}, nil
}

// SafetyFilterError represents a Google safety filter block.
//
// Use errors.As to check for this error type.
type SafetyFilterError struct {
	reason   string
	category string
}

// Error implements the error interface.
func (e *SafetyFilterError) Error() string {
	return "content blocked by safety filter: " + e.category
}

// Category returns the safety category that triggered the block.
func (e *SafetyFilterError) Category() string {
	return e.category
}

// Reason returns why the content was blocked.
func (e *SafetyFilterError) Reason() string {
	return e.reason
}
