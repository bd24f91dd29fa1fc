package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/mouncefik/nbgen/utils/config"
	"google.golang.org/api/option"
)

// contentGenerator is the part of *genai.GenerativeModel the client uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// googleService is the process-wide Gemini client, created once
var googleService = &googleState{gate: &serviceGate{}}

type googleState struct {
	gate   *serviceGate
	mu     sync.RWMutex
	client *genai.Client
}

func (s *googleState) setClient(c *genai.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}

func (s *googleState) getClient() *genai.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// GoogleProvider handles Google AI (Gemini) family of models
type GoogleProvider struct {
	state *googleState
	// newModel binds a model handle; replaced in tests
	newModel func(modelName string) (contentGenerator, error)
}

// NewGoogleProvider creates a provider bound to the process-wide Gemini service
func NewGoogleProvider() *GoogleProvider {
	g := &GoogleProvider{state: googleService}
	g.newModel = g.clientModel
	return g
}

// Name returns the provider name
func (g *GoogleProvider) Name() string {
	return "google"
}

// SupportsModel checks if the given model name is a Gemini model
func (g *GoogleProvider) SupportsModel(modelName string) bool {
	modelName = strings.ToLower(modelName)
	return strings.HasPrefix(modelName, "gemini-") || strings.HasPrefix(modelName, "models/gemini-")
}

// Configure creates the Gemini client the first time it is called in this process
func (g *GoogleProvider) Configure(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key is required for Google provider")
	}
	return g.state.gate.do("Google Generative AI", apiKey, func() error {
		client, err := genai.NewClient(context.WithoutCancel(ctx), option.WithAPIKey(apiKey))
		if err != nil {
			return fmt.Errorf("failed to create Google AI client: %w", err)
		}
		g.state.setClient(client)
		return nil
	})
}

func (g *GoogleProvider) clientModel(modelName string) (contentGenerator, error) {
	client := g.state.getClient()
	if client == nil {
		return nil, fmt.Errorf("Google provider not configured")
	}
	return client.GenerativeModel(modelName), nil
}

// NewGenerator instantiates a Gemini model handle with the merged
// generation parameters and safety settings
func (g *GoogleProvider) NewGenerator(modelName string, params GenerationParams, safety []SafetySetting) (Generator, error) {
	config.VerboseLog("Instantiating Gemini model: %s", modelName)
	config.DebugLog("Using configuration: Temperature=%.2f, TopP=%.2f, TopK=%d, MaxOutputTokens=%d",
		params.Temperature, params.TopP, params.TopK, params.MaxOutputTokens)

	settings, err := toGenaiSafety(safety)
	if err != nil {
		return nil, err
	}

	model, err := g.newModel(modelName)
	if err != nil {
		return nil, err
	}

	if gm, ok := model.(*genai.GenerativeModel); ok {
		gm.SetTemperature(params.Temperature)
		gm.SetTopP(params.TopP)
		gm.SetTopK(params.TopK)
		gm.SetMaxOutputTokens(params.MaxOutputTokens)
		gm.SafetySettings = settings
	}

	return &googleGenerator{model: model, modelName: modelName}, nil
}

var harmCategories = map[HarmCategory]genai.HarmCategory{
	HarmCategoryHarassment:       genai.HarmCategoryHarassment,
	HarmCategoryHateSpeech:       genai.HarmCategoryHateSpeech,
	HarmCategorySexuallyExplicit: genai.HarmCategorySexuallyExplicit,
	HarmCategoryDangerousContent: genai.HarmCategoryDangerousContent,
}

var blockThresholds = map[BlockThreshold]genai.HarmBlockThreshold{
	BlockNone:           genai.HarmBlockNone,
	BlockOnlyHigh:       genai.HarmBlockOnlyHigh,
	BlockMediumAndAbove: genai.HarmBlockMediumAndAbove,
	BlockLowAndAbove:    genai.HarmBlockLowAndAbove,
}

func toGenaiSafety(safety []SafetySetting) ([]*genai.SafetySetting, error) {
	settings := make([]*genai.SafetySetting, 0, len(safety))
	for _, s := range safety {
		category, ok := harmCategories[s.Category]
		if !ok {
			return nil, fmt.Errorf("unknown harm category %q", s.Category)
		}
		threshold, ok := blockThresholds[s.Threshold]
		if !ok {
			return nil, fmt.Errorf("unknown block threshold %q", s.Threshold)
		}
		settings = append(settings, &genai.SafetySetting{Category: category, Threshold: threshold})
	}
	return settings, nil
}

type googleGenerator struct {
	model     contentGenerator
	modelName string
}

// Generate sends the prompt once and validates the response
func (g *googleGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	config.DebugLog("Sending prompt to %s: prompt_length=%d", g.modelName, len(prompt))

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGoogleError(err)
	}
	config.VerboseLog("Received response from Gemini")
	return extractGoogleText(resp)
}

// classifyGoogleError maps SDK block errors onto the taxonomy before
// falling back to transport classification
func classifyGoogleError(err error) *Error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		if blocked.PromptFeedback != nil {
			e := newError(KindContentBlocked, "content generation blocked due to safety settings", nil)
			e.Reason = blocked.PromptFeedback.BlockReason.String()
			config.Logger().Errorf("API call blocked by safety settings. Reason: %s", e.Reason)
			return e
		}
		e := newError(KindEmptyResponse, "AI returned empty content", nil)
		e.Reason = finishReason(blocked.Candidate)
		config.Logger().Errorf("AI candidate was blocked. Finish reason: %s", e.Reason)
		return e
	}
	return classifyAPIError(err)
}

// extractGoogleText validates a response and returns its trimmed text
func extractGoogleText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", newError(KindEmptyResponse, "AI response is empty", nil)
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockReasonUnspecified {
		e := newError(KindContentBlocked, "content generation blocked due to safety settings", nil)
		e.Reason = fb.BlockReason.String()
		config.Logger().Errorf("API call blocked by safety settings. Reason: %s", e.Reason)
		return "", e
	}

	if len(resp.Candidates) == 0 {
		e := newError(KindEmptyResponse, "AI response has no candidates, generation may have been stopped or blocked", nil)
		e.Reason = "unknown (no candidates)"
		config.Logger().Error("API response received, but it contains no candidates")
		return "", e
	}

	candidate := resp.Candidates[0]
	text := candidateText(candidate)
	if strings.TrimSpace(text) == "" {
		e := newError(KindEmptyResponse, "AI returned empty content", nil)
		e.Reason = finishReason(candidate)
		config.Logger().Errorf("AI generated empty content. Finish reason: %s", e.Reason)
		return "", e
	}

	config.VerboseLog("Successfully extracted text from AI response")
	return strings.TrimSpace(text), nil
}

// candidateText concatenates every text part of c in order
func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

func finishReason(c *genai.Candidate) string {
	if c == nil {
		return "unknown"
	}
	return c.FinishReason.String()
}
