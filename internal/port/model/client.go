// Package model defines the port for chat-completion model invocation.
// DocLens treats the model as an external collaborator: it supplies messages
// and tool specs, and receives either a final answer or tool calls.
package model

import (
	"context"
	"encoding/json"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn in the conversation context.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // assistant turns only
	ToolCallID string     // tool result turns only
	ToolName   string     // tool result turns only
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolSpec declares one callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Schema      json.RawMessage // JSON Schema for the arguments object
}

// Request is one completion request.
type Request struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// Completion is the model's response: final content, tool calls, or both.
// An empty ToolCalls slice means the content is the final answer.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
	TokensIn  int
	TokensOut int
}

// Client invokes the completion model. Implementations must return an error
// only for invocation faults (network, auth, protocol); refusals and empty
// answers are valid completions.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Completion, error)
}
