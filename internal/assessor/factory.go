package assessor

import (
	"fmt"

	"personashield/internal/config"
	"personashield/internal/port"
)

// ProviderFactory creates a RiskAssessor from a provider config.
type ProviderFactory func(cfg *config.AssessorConfig) (port.RiskAssessor, error)

// providers is populated by init() in each provider package.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers an assessor provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// New creates a RiskAssessor for cfg.Provider using the registered factory.
func New(cfg *config.AssessorConfig) (port.RiskAssessor, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown assessor provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewChain builds the primary assessor and, when a fallback is configured,
// wraps both in a FallbackAssessor.
func NewChain(primary, fallback *config.AssessorConfig) (port.RiskAssessor, error) {
	first, err := New(primary)
	if err != nil {
		return nil, fmt.Errorf("primary assessor: %w", err)
	}
	if fallback == nil || fallback.Endpoint == "" {
		return first, nil
	}

	second, err := New(fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback assessor: %w", err)
	}
	return NewFallbackAssessor(
		[]port.RiskAssessor{first, second},
		[]string{primary.Provider, "fallback-" + fallback.Provider},
	), nil
}
