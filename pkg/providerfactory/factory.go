// Package providerfactory constructs the active model provider from
// configuration. Selection happens once at startup; the rest of the
// pipeline only sees the providers.Provider interface.
package providerfactory

import (
	"fmt"

	"mercator-hq/themis/pkg/config"
	"mercator-hq/themis/pkg/providers"
	"mercator-hq/themis/pkg/providers/anthropic"
	"mercator-hq/themis/pkg/providers/openai"
)

// New builds the provider named by cfg.Provider from its configuration.
func New(cfg *config.Config) (providers.Provider, error) {
	name := cfg.Provider
	pc, ok := cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", name)
	}

	switch pc.Type {
	case "mock":
		return providers.NewMockProvider(name), nil
	case "openai":
		return openai.New(name, pc)
	case "anthropic":
		return anthropic.New(name, pc)
	default:
		return nil, fmt.Errorf("unknown provider type %q for provider %q", pc.Type, name)
	}
}
