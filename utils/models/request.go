package models

import "time"

// HarmCategory names a content-safety category
type HarmCategory string

const (
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// BlockThreshold is the minimum severity at which content is blocked
type BlockThreshold string

const (
	BlockNone           BlockThreshold = "BLOCK_NONE"
	BlockOnlyHigh       BlockThreshold = "BLOCK_ONLY_HIGH"
	BlockMediumAndAbove BlockThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	BlockLowAndAbove    BlockThreshold = "BLOCK_LOW_AND_ABOVE"
)

// SafetySetting pairs a harm category with its blocking threshold
type SafetySetting struct {
	Category  HarmCategory
	Threshold BlockThreshold
}

// DefaultSafetySettings blocks medium-and-above severity in every category
func DefaultSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: HarmCategoryHarassment, Threshold: BlockMediumAndAbove},
		{Category: HarmCategoryHateSpeech, Threshold: BlockMediumAndAbove},
		{Category: HarmCategorySexuallyExplicit, Threshold: BlockMediumAndAbove},
		{Category: HarmCategoryDangerousContent, Threshold: BlockMediumAndAbove},
	}
}

// GenerationParams holds the sampling parameters sent with a completion
type GenerationParams struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// DefaultGenerationParams returns the parameters used when no override is given
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature:     0.4,
		TopP:            1.0,
		TopK:            32,
		MaxOutputTokens: 8192,
	}
}

// GenerationOverrides replaces individual generation parameters. Nil fields
// keep the default.
type GenerationOverrides struct {
	Temperature     *float32
	TopP            *float32
	TopK            *int32
	MaxOutputTokens *int32
}

// Merge applies the non-nil overrides onto p
func (p GenerationParams) Merge(o GenerationOverrides) GenerationParams {
	if o.Temperature != nil {
		p.Temperature = *o.Temperature
	}
	if o.TopP != nil {
		p.TopP = *o.TopP
	}
	if o.TopK != nil {
		p.TopK = *o.TopK
	}
	if o.MaxOutputTokens != nil {
		p.MaxOutputTokens = *o.MaxOutputTokens
	}
	return p
}

// CompletionRequest describes a single completion call
type CompletionRequest struct {
	Prompt     string
	APIKey     string
	Model      string
	Generation GenerationOverrides
	// Safety replaces the default settings entirely when non-nil
	Safety       []SafetySetting
	MaxRetries   int
	InitialDelay time.Duration
}

// NewCompletionRequest builds a request with the default retry policy
// (two retries, one second initial backoff)
func NewCompletionRequest(prompt, apiKey, model string) CompletionRequest {
	return CompletionRequest{
		Prompt:       prompt,
		APIKey:       apiKey,
		Model:        model,
		MaxRetries:   2,
		InitialDelay: time.Second,
	}
}

func (r CompletionRequest) safetySettings() []SafetySetting {
	if r.Safety != nil {
		return r.Safety
	}
	return DefaultSafetySettings()
}
