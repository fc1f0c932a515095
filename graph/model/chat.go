// Package model connects approval steps to LLM chat providers.
//
// A ChatModel sends a conversation to a provider and returns its reply.
// NewApprovalDecider turns any ChatModel into a graph.ApprovalDecider, so a
// simulation can ask a model whether an approval step should pass. Provider
// adapters live in the anthropic, openai and google subpackages.
package model

import "context"

// ChatModel defines the interface for LLM chat providers.
//
// Implementations should:
//   - Handle provider-specific authentication
//   - Convert Message values to the provider's request format
//   - Respect context cancellation and timeouts
//
// Example usage:
//
//	m := anthropic.NewChatModel(apiKey, "")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "Approve the laptop order?"},
//	})
type ChatModel interface {
	// Chat sends messages to the LLM and returns the response.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role identifies the message sender. Use the Role* constants.
	Role string

	// Content contains the message text.
	Content string
}

// Standard role constants for LLM conversations.
const (
	// RoleSystem indicates a system message that sets context or instructions.
	RoleSystem = "system"

	// RoleUser indicates a message from the human user.
	RoleUser = "user"

	// RoleAssistant indicates a response from the LLM.
	RoleAssistant = "assistant"
)

// ChatOut represents the output from an LLM chat completion.
type ChatOut struct {
	// Text contains the LLM's generated response.
	Text string
}

// SplitSystem separates system messages from the conversation. Multiple
// system messages are joined with a blank line. Anthropic and Gemini take
// the system prompt as a separate parameter.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	var rest []Message
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
