package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gemini-2.0-flash", "google"},
		{"models/gemini-1.5-pro", "google"},
		{"gpt-4o", "openai"},
		{"o3-mini", "openai"},
		{"some-custom-model", "google"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			provider := DetectProvider(tt.model)
			require.NotNil(t, provider)
			assert.Equal(t, tt.want, provider.Name())
		})
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewProviderRegistry()
	factory := NewProviderFactory(func() Provider { return NewGoogleProvider() }, ProviderMetadata{Name: "google", ModelPrefixes: []string{"gemini-"}})

	require.NoError(t, r.Register("google", factory))
	assert.Error(t, r.Register("google", factory))
	assert.Nil(t, r.FindProvider("gpt-4o"))
	assert.NotNil(t, r.GetProviderByName("google"))
}

func TestRegistryPrefersHigherPriority(t *testing.T) {
	r := NewProviderRegistry()
	require.NoError(t, r.Register("low", NewProviderFactory(func() Provider { return NewOpenAIProvider() }, ProviderMetadata{Name: "low", ModelPrefixes: []string{"x-"}, Priority: 1})))
	require.NoError(t, r.Register("high", NewProviderFactory(func() Provider { return NewGoogleProvider() }, ProviderMetadata{Name: "high", ModelPrefixes: []string{"x-"}, Priority: 9})))

	assert.Equal(t, "google", r.FindProvider("x-model").Name())
}

func TestListRegisteredProviders(t *testing.T) {
	assert.Equal(t, []string{"google", "openai"}, ListRegisteredProviders())
}
