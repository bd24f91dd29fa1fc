package models

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mouncefik/nbgen/utils/config"
)

// FallbackProvider serves model names no registered prefix claims
const FallbackProvider = "google"

// Global registry instance
var registry = NewProviderRegistry()

func init() {
	RegisterProvider("google", NewProviderFactory(func() Provider { return NewGoogleProvider() }, ProviderMetadata{
		Name:          "google",
		Description:   "Google Gemini models",
		ModelPrefixes: []string{"gemini-", "models/gemini-"},
		Priority:      10,
	}))
	RegisterProvider("openai", NewProviderFactory(func() Provider { return NewOpenAIProvider() }, ProviderMetadata{
		Name:          "openai",
		Description:   "OpenAI chat completion models",
		ModelPrefixes: []string{"gpt-", "o1", "o3", "o4"},
		Priority:      5,
	}))
}

// ProviderRegistry manages registered provider factories
type ProviderRegistry struct {
	factories map[string]*ProviderFactory
	mutex     sync.RWMutex
}

// NewProviderRegistry creates an empty registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{factories: make(map[string]*ProviderFactory)}
}

// ProviderFactory creates provider instances and carries their metadata
type ProviderFactory struct {
	constructor func() Provider
	metadata    ProviderMetadata
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(constructor func() Provider, metadata ProviderMetadata) *ProviderFactory {
	return &ProviderFactory{
		constructor: constructor,
		metadata:    metadata,
	}
}

// CreateProvider creates a new provider instance using the constructor function
func (f *ProviderFactory) CreateProvider() Provider {
	return f.constructor()
}

// GetMetadata returns the provider metadata
func (f *ProviderFactory) GetMetadata() ProviderMetadata {
	return f.metadata
}

// ProviderMetadata contains information about a provider
type ProviderMetadata struct {
	Name          string
	Description   string
	ModelPrefixes []string // e.g., ["gemini-", "gpt-"]
	Priority      int      // Higher priority = checked first
}

// Register adds a provider factory to the registry
func (r *ProviderRegistry) Register(name string, factory *ProviderFactory) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.factories[name] = factory
	config.DebugLog("[Registry] Registered provider: %s", name)
	return nil
}

// RegisterProvider adds a provider factory to the global registry
func RegisterProvider(name string, factory *ProviderFactory) error {
	return registry.Register(name, factory)
}

// FindProvider detects the appropriate provider for a model by prefix,
// preferring higher priority providers. Returns nil when nothing matches.
func (r *ProviderRegistry) FindProvider(modelName string) Provider {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	config.DebugLog("[Registry] Finding provider for model: %s", modelName)

	var candidates []ProviderMetadata
	byName := make(map[string]*ProviderFactory)
	lower := strings.ToLower(modelName)
	for name, factory := range r.factories {
		metadata := factory.GetMetadata()
		for _, prefix := range metadata.ModelPrefixes {
			if strings.HasPrefix(lower, prefix) {
				candidates = append(candidates, metadata)
				byName[metadata.Name] = r.factories[name]
				break
			}
		}
	}

	if len(candidates) == 0 {
		config.DebugLog("[Registry] No provider found for model %s", modelName)
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})
	selected := candidates[0]
	config.DebugLog("[Registry] Selected provider %s for model %s (priority: %d)",
		selected.Name, modelName, selected.Priority)
	return byName[selected.Name].CreateProvider()
}

// GetProviderByName returns a specific provider by name
func (r *ProviderRegistry) GetProviderByName(name string) Provider {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if factory, exists := r.factories[name]; exists {
		return factory.CreateProvider()
	}
	return nil
}

// ListRegisteredProviders returns names of all registered providers
func ListRegisteredProviders() []string {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	var names []string
	for name := range registry.factories {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// DetectProvider determines the provider for modelName, falling back to
// Gemini for names no provider claims
func DetectProvider(modelName string) Provider {
	if provider := registry.FindProvider(modelName); provider != nil {
		return provider
	}
	config.DebugLog("[Registry] Falling back to %s provider for model %s", FallbackProvider, modelName)
	return registry.GetProviderByName(FallbackProvider)
}
