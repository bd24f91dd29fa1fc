package models

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mouncefik/nbgen/utils/config"
	openai "github.com/sashabaranov/go-openai"
)

// chatCompleter is the part of *openai.Client the client uses
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// openaiService is the process-wide OpenAI client, created once
var openaiService = &openaiState{gate: &serviceGate{}}

type openaiState struct {
	gate   *serviceGate
	mu     sync.RWMutex
	client chatCompleter
}

func (s *openaiState) setClient(c chatCompleter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}

func (s *openaiState) getClient() chatCompleter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// OpenAIProvider handles OpenAI family of models
type OpenAIProvider struct {
	state *openaiState
}

// NewOpenAIProvider creates a provider bound to the process-wide OpenAI client
func NewOpenAIProvider() *OpenAIProvider {
	return &OpenAIProvider{state: openaiService}
}

// Name returns the provider name
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// SupportsModel checks if the given model name is supported by OpenAI
func (o *OpenAIProvider) SupportsModel(modelName string) bool {
	return config.IsOpenAIModel(modelName)
}

// Configure creates the OpenAI client the first time it is called in this process
func (o *OpenAIProvider) Configure(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key is required for OpenAI provider")
	}
	return o.state.gate.do("OpenAI", apiKey, func() error {
		o.state.setClient(openai.NewClient(apiKey))
		return nil
	})
}

// isNewModelSeries reports whether the model takes max_completion_tokens
// instead of max_tokens and rejects sampling parameters
func (o *OpenAIProvider) isNewModelSeries(modelName string) bool {
	modelName = strings.ToLower(modelName)
	return strings.HasPrefix(modelName, "o1") || strings.HasPrefix(modelName, "o3") || strings.HasPrefix(modelName, "o4")
}

// NewGenerator binds a chat completion request template to the model.
// OpenAI has no per-request safety thresholds or top-k; both are ignored.
func (o *OpenAIProvider) NewGenerator(modelName string, params GenerationParams, safety []SafetySetting) (Generator, error) {
	client := o.state.getClient()
	if client == nil {
		return nil, fmt.Errorf("OpenAI provider not configured")
	}

	config.VerboseLog("Instantiating OpenAI model: %s", modelName)
	config.DebugLog("Ignoring %d safety settings and top_k=%d for OpenAI", len(safety), params.TopK)

	req := openai.ChatCompletionRequest{Model: modelName}
	if o.isNewModelSeries(modelName) {
		req.MaxCompletionTokens = int(params.MaxOutputTokens)
	} else {
		req.MaxTokens = int(params.MaxOutputTokens)
		req.Temperature = params.Temperature
		req.TopP = params.TopP
	}

	return &openaiGenerator{client: client, template: req}, nil
}

type openaiGenerator struct {
	client   chatCompleter
	template openai.ChatCompletionRequest
}

// Generate sends the prompt once and validates the response
func (g *openaiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := g.template
	req.Messages = []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	config.DebugLog("Sending prompt to %s: prompt_length=%d", req.Model, len(prompt))
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyAPIError(err)
	}
	return extractOpenAIText(resp)
}

func extractOpenAIText(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		e := newError(KindEmptyResponse, "AI response has no choices", nil)
		e.Reason = "unknown (no choices)"
		return "", e
	}

	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		kind := KindEmptyResponse
		message := "AI returned empty content"
		if choice.FinishReason == openai.FinishReasonContentFilter {
			kind = KindContentBlocked
			message = "content generation blocked by content filter"
		}
		e := newError(kind, message, nil)
		e.Reason = string(choice.FinishReason)
		config.Logger().Errorf("%s. Finish reason: %s", message, e.Reason)
		return "", e
	}

	return text, nil
}
