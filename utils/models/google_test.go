package models

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeModel struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
}

func (m *fakeModel) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	i := m.calls
	m.calls++
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if err != nil {
		return nil, err
	}
	return m.responses[i], nil
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: parts, Role: "model"},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

// newConfiguredGoogleProvider returns a provider whose service gate is
// already open so tests never build a real client
func newConfiguredGoogleProvider(model *fakeModel) *GoogleProvider {
	return &GoogleProvider{
		state: &googleState{gate: &serviceGate{configured: true, apiKey: "key"}},
		newModel: func(string) (contentGenerator, error) {
			return model, nil
		},
	}
}

func TestExtractGoogleText(t *testing.T) {
	tests := []struct {
		name   string
		resp   *genai.GenerateContentResponse
		want   string
		kind   Kind
		reason string
	}{
		{
			name: "trims text",
			resp: textResponse(genai.Text("\n  [CODE]\nx = 1\n  ")),
			want: "[CODE]\nx = 1",
		},
		{
			name: "skips non-text parts",
			resp: textResponse(genai.Blob{MIMEType: "image/png", Data: []byte{1}}, genai.Text("hello")),
			want: "hello",
		},
		{
			name: "joins every text part",
			resp: textResponse(genai.Text("[MARKDOWN]\n# Title\n"), genai.Text("[CODE]\nprint(1)\n")),
			want: "[MARKDOWN]\n# Title\n[CODE]\nprint(1)",
		},
		{
			name: "blank leading part",
			resp: textResponse(genai.Text("   "), genai.Text("second")),
			want: "second",
		},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
			},
			kind:   KindContentBlocked,
			reason: genai.BlockReasonSafety.String(),
		},
		{
			name:   "no candidates",
			resp:   &genai.GenerateContentResponse{},
			kind:   KindEmptyResponse,
			reason: "unknown (no candidates)",
		},
		{
			name: "blank candidate",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content:      &genai.Content{Parts: []genai.Part{genai.Text(" \n ")}},
					FinishReason: genai.FinishReasonMaxTokens,
				}},
			},
			kind:   KindEmptyResponse,
			reason: genai.FinishReasonMaxTokens.String(),
		},
		{
			name: "candidate without content",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonOther}},
			},
			kind:   KindEmptyResponse,
			reason: genai.FinishReasonOther.String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := extractGoogleText(tt.resp)
			if tt.want != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, text)
				return
			}
			require.Error(t, err)
			var classified *Error
			require.ErrorAs(t, err, &classified)
			assert.Equal(t, tt.kind, classified.Kind)
			assert.Equal(t, tt.reason, classified.Reason)
		})
	}
}

func TestClassifyGoogleBlockedError(t *testing.T) {
	promptBlocked := &genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonOther}}
	e := classifyGoogleError(fmt.Errorf("generate: %w", promptBlocked))
	assert.Equal(t, KindContentBlocked, e.Kind)
	assert.Equal(t, genai.BlockReasonOther.String(), e.Reason)

	candidateBlocked := &genai.BlockedError{Candidate: &genai.Candidate{FinishReason: genai.FinishReasonSafety}}
	e = classifyGoogleError(candidateBlocked)
	assert.Equal(t, KindEmptyResponse, e.Kind)
	assert.Equal(t, genai.FinishReasonSafety.String(), e.Reason)

	e = classifyGoogleError(status.Error(codes.Unavailable, "try later"))
	assert.Equal(t, KindTransient, e.Kind)
}

func TestGoogleZeroCandidatesConsumesNoRetries(t *testing.T) {
	model := &fakeModel{responses: []*genai.GenerateContentResponse{{}, textResponse(genai.Text("never"))}}
	sleeper := &sleepRecorder{}
	client := NewClient(WithProvider(newConfiguredGoogleProvider(model)), WithSleeper(sleeper.sleep))

	_, err := client.Complete(context.Background(), NewCompletionRequest("p", "key", "gemini-2.0-flash"))
	require.Error(t, err)

	assert.Equal(t, KindEmptyResponse, KindOf(err))
	assert.Equal(t, 1, model.calls)
	assert.Empty(t, sleeper.delays)
}

func TestGoogleRetriesUnavailable(t *testing.T) {
	model := &fakeModel{
		errs:      []error{status.Error(codes.ResourceExhausted, "quota"), nil},
		responses: []*genai.GenerateContentResponse{nil, textResponse(genai.Text(" [MARKDOWN]\nhi "))},
	}
	sleeper := &sleepRecorder{}
	client := NewClient(WithProvider(newConfiguredGoogleProvider(model)), WithSleeper(sleeper.sleep))

	text, err := client.Complete(context.Background(), NewCompletionRequest("p", "key", "gemini-2.0-flash"))
	require.NoError(t, err)

	assert.Equal(t, "[MARKDOWN]\nhi", text)
	assert.Equal(t, 2, model.calls)
	assert.Len(t, sleeper.delays, 1)
}

func TestGooglePermissionDeniedIsNotRetried(t *testing.T) {
	model := &fakeModel{errs: []error{status.Error(codes.PermissionDenied, "bad key")}}
	sleeper := &sleepRecorder{}
	client := NewClient(WithProvider(newConfiguredGoogleProvider(model)), WithSleeper(sleeper.sleep))

	_, err := client.Complete(context.Background(), NewCompletionRequest("p", "key", "gemini-2.0-flash"))
	assert.Equal(t, KindAuth, KindOf(err))
	assert.Equal(t, 1, model.calls)
	assert.Empty(t, sleeper.delays)
}

func TestGoogleUnknownSafetySettingFailsSetup(t *testing.T) {
	provider := newConfiguredGoogleProvider(&fakeModel{})
	client := NewClient(WithProvider(provider), WithSleeper((&sleepRecorder{}).sleep))

	req := NewCompletionRequest("p", "key", "gemini-2.0-flash")
	req.Safety = []SafetySetting{{Category: "HARM_CATEGORY_UNKNOWN", Threshold: BlockNone}}

	_, err := client.Complete(context.Background(), req)
	assert.Equal(t, KindClientSetup, KindOf(err))
}

func TestToGenaiSafetyDefaults(t *testing.T) {
	settings, err := toGenaiSafety(DefaultSafetySettings())
	require.NoError(t, err)
	require.Len(t, settings, 4)
	for _, s := range settings {
		assert.Equal(t, genai.HarmBlockMediumAndAbove, s.Threshold)
	}
	assert.Equal(t, genai.HarmCategoryHarassment, settings[0].Category)
	assert.Equal(t, genai.HarmCategoryDangerousContent, settings[3].Category)
}

func TestGoogleSupportsModel(t *testing.T) {
	provider := NewGoogleProvider()
	assert.True(t, provider.SupportsModel("gemini-2.0-flash"))
	assert.True(t, provider.SupportsModel("models/gemini-1.5-pro"))
	assert.False(t, provider.SupportsModel("gpt-4o"))
}

func TestGoogleConfigureRequiresKey(t *testing.T) {
	provider := &GoogleProvider{state: &googleState{gate: &serviceGate{}}}
	assert.Error(t, provider.Configure(context.Background(), ""))
	assert.False(t, provider.state.gate.isConfigured())
}
