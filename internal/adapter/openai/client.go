// Package openai implements the model port against any OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doclens/doclens/internal/config"
	"github.com/doclens/doclens/internal/port/model"
	"github.com/doclens/doclens/internal/resilience"
)

// Client implements model.Client via go-openai. A circuit breaker guards
// the endpoint so agent loops fail fast while it is down.
type Client struct {
	api     *openai.Client
	breaker *resilience.Breaker
	log     *slog.Logger
}

// New creates a Client. A non-empty BaseURL points it at a gateway or local
// server instead of api.openai.com.
func New(cfg config.Model, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		breaker: resilience.NewBreaker(5, 30*time.Second),
		log:     log,
	}
}

// Complete sends one chat-completion request and maps the response back to
// the port types.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Completion, error) {
	apiReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toAPIMessages(req),
		Tools:    toAPITools(req.Tools),
	}

	var resp openai.ChatCompletionResponse
	err := c.breaker.Execute(func() error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(ctx, apiReq)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: no choices returned")
	}

	choice := resp.Choices[0]
	completion := &model.Completion{
		Content:   choice.Message.Content,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}
	for _, tc := range choice.Message.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, model.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: json.RawMessage(tc.Function.Arguments),
		})
	}

	c.log.Debug("model completion",
		"model", req.Model,
		"tool_calls", len(completion.ToolCalls),
		"tokens_in", completion.TokensIn,
		"tokens_out", completion.TokensOut,
	)
	return completion, nil
}

func toAPIMessages(req *model.Request) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		apiMsg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.ToolName,
		}
		for _, tc := range m.ToolCalls {
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Args),
				},
			})
		}
		msgs = append(msgs, apiMsg)
	}
	return msgs
}

func toAPITools(tools []model.ToolSpec) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}
	return out
}
