package ai

import (
	"fmt"

	"gengate/internal/convo"
	"gengate/internal/registry"
)

// Factory owns one stateless adapter per provider and hands out the
// right one by id. Adapters are built once at startup; they carry no
// per-request state, so the same instance serves concurrent requests.
type Factory struct {
	services map[registry.Provider]Service
}

// NewFactory builds adapters for every known provider. Adapters are
// created even without an API key so that a missing key surfaces as a
// clear configuration error on first use rather than a silent 404.
func NewFactory(openAI, gemini Config, history convo.Store) *Factory {
	return &Factory{
		services: map[registry.Provider]Service{
			registry.OpenAI: newOpenAI(openAI, history),
			registry.Gemini: newGemini(gemini, history),
		},
	}
}

// Service returns the adapter for the provider id.
func (f *Factory) Service(provider registry.Provider) (Service, error) {
	svc, ok := f.services[provider]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", provider, registry.ErrUnsupportedProvider)
	}
	return svc, nil
}
