package models

import (
	"sync"

	"github.com/mouncefik/nbgen/utils/config"
)

// serviceGate runs a provider's service configuration at most once per
// process. A failed configuration is not latched, so a later call may
// try again; a successful one is never repeated or reset.
type serviceGate struct {
	mu         sync.Mutex
	configured bool
	apiKey     string
}

// do runs configure under the gate unless a previous call succeeded
func (g *serviceGate) do(name, apiKey string, configure func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.configured {
		if apiKey != g.apiKey {
			config.Logger().Warnf("%s service already configured; ignoring a different API key for this process", name)
		}
		return nil
	}

	config.VerboseLog("Configuring %s service...", name)
	if err := configure(); err != nil {
		config.Logger().Errorf("Failed to configure %s service: %v", name, err)
		return err
	}
	g.configured = true
	g.apiKey = apiKey
	config.VerboseLog("%s service configured successfully", name)
	return nil
}

// isConfigured reports whether configuration has succeeded
func (g *serviceGate) isConfigured() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.configured
}
