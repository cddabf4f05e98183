// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package registry is the single source of truth for which models each
// provider exposes, whether a model produces text or image output, and
// which models accept multi-image edit requests. Every derived view
// (the per-provider model listing, the edit-eligible subset, kind
// resolution) is computed from the one catalog table below — no other
// package may hardcode a model id or provider name.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

// Provider identifies an upstream generation service. The set is closed:
// adding a provider means adding catalog entries plus an adapter in
// internal/ai, nothing else.
type Provider string

const (
	OpenAI Provider = "openai"
	Gemini Provider = "gemini"
)

// Kind categorizes the output a model produces. It decides whether a
// request is routed to a chat-style completion call or an image
// generation call.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

var (
	// ErrUnknownModel is returned when a model id is not registered
	// under the given provider.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnsupportedProvider is returned for any provider name outside
	// the closed set above.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// Model is one catalog entry. Entries are immutable and defined at
// compile time.
type Model struct {
	Provider Provider
	ID       string
	Kind     Kind
	Editable bool
}

// catalog is the declarative table everything else derives from.
// To add a model, add a line here — listings, kind resolution and the
// edit-info endpoint pick it up automatically.
var catalog = []Model{
	{OpenAI, "gpt-image-1.5", KindImage, true},
	{OpenAI, "gpt-image-1", KindImage, true},
	{OpenAI, "gpt-image-1-mini", KindImage, true},
	{OpenAI, "chatgpt-image-latest", KindImage, true},
	{OpenAI, "gpt-5", KindText, false},
	{OpenAI, "gpt-5.2", KindText, false},
	{Gemini, "gemini-2.5-flash", KindText, false},
	{Gemini, "imagen-4.0-generate-001", KindImage, false},
}

// index provides (provider, model) → entry lookups. Built once at init,
// read-only afterwards, so concurrent lookups need no locking.
var index = func() map[Provider]map[string]Model {
	idx := make(map[Provider]map[string]Model)
	for _, m := range catalog {
		byID, ok := idx[m.Provider]
		if !ok {
			byID = make(map[string]Model)
			idx[m.Provider] = byID
		}
		if _, dup := byID[m.ID]; dup {
			panic(fmt.Sprintf("registry: duplicate catalog entry %s/%s", m.Provider, m.ID))
		}
		byID[m.ID] = m
	}
	return idx
}()

// ParseProvider maps a request path segment or form value onto a known
// Provider. Matching is case-insensitive.
func ParseProvider(name string) (Provider, error) {
	switch Provider(strings.ToLower(name)) {
	case OpenAI:
		return OpenAI, nil
	case Gemini:
		return Gemini, nil
	}
	return "", fmt.Errorf("provider %q: %w", name, ErrUnsupportedProvider)
}

// Providers returns the known providers in catalog declaration order.
func Providers() []Provider {
	var out []Provider
	seen := make(map[Provider]bool)
	for _, m := range catalog {
		if !seen[m.Provider] {
			seen[m.Provider] = true
			out = append(out, m.Provider)
		}
	}
	return out
}

// ResolveKind reports whether the model produces text or image output.
// The lookup is scoped by the (provider, model) pair: the same id under
// two providers can never route ambiguously.
func ResolveKind(provider Provider, model string) (Kind, error) {
	m, ok := index[provider][model]
	if !ok {
		return "", fmt.Errorf("model %q not registered for provider %q: %w", model, provider, ErrUnknownModel)
	}
	return m.Kind, nil
}

// ModelInfo is one model as exposed on the listing endpoint.
type ModelInfo struct {
	ID   string `json:"id"`
	Kind Kind   `json:"type"`
}

// ProviderModels groups the listing per provider.
type ProviderModels struct {
	Provider Provider    `json:"provider"`
	Models   []ModelInfo `json:"models"`
}

// ListModels returns every catalog entry grouped by provider, in
// declaration order. Each entry appears exactly once.
func ListModels() []ProviderModels {
	var out []ProviderModels
	pos := make(map[Provider]int)
	for _, m := range catalog {
		i, ok := pos[m.Provider]
		if !ok {
			i = len(out)
			pos[m.Provider] = i
			out = append(out, ProviderModels{Provider: m.Provider})
		}
		out[i].Models = append(out[i].Models, ModelInfo{ID: m.ID, Kind: m.Kind})
	}
	return out
}

// EditableModels returns the ids of models flagged as supporting
// multi-image edits, in declaration order.
func EditableModels() []string {
	var out []string
	for _, m := range catalog {
		if m.Editable {
			out = append(out, m.ID)
		}
	}
	return out
}
