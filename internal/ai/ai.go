// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai implements one adapter per upstream generation provider
// (OpenAI, Gemini) behind a common Service interface. Each adapter
// handles its own HTTP communication and response parsing; the Factory
// selects an adapter by provider id. Image editing is an optional
// capability discovered by type assertion, mirroring how not every
// provider can do it.
package ai

import (
	"context"
	"errors"
	"fmt"

	"gengate/internal/registry"
)

var (
	// ErrNotConfigured is returned on the first call to a provider
	// whose API key is missing from the environment.
	ErrNotConfigured = errors.New("api key not configured")

	// ErrNotImplemented is returned for capabilities a provider's API
	// does not (yet) expose, such as Gemini image generation.
	ErrNotImplemented = errors.New("not implemented")
)

// Config holds the credentials and settings for a single provider.
type Config struct {
	APIKey  string
	BaseURL string
}

// GenerateRequest carries one generation call. ConversationID, when
// set, continues an earlier exchange; UseSummaryContext swaps the full
// history for a one-shot summary of it.
type GenerateRequest struct {
	Model             string
	Prompt            string
	ConversationID    string
	UseSummaryContext bool
}

// Result is the normalized outcome of any provider call. Exactly one of
// Content and ImageBase64 is populated, depending on the model's kind.
type Result struct {
	Provider      registry.Provider
	Model         string
	Content       string
	ImageBase64   string
	ImageMIMEType string
}

// ImageFile is one buffered upload for an edit request.
type ImageFile struct {
	Name string
	MIME string
	Data []byte
}

// Service is the capability every provider adapter implements.
type Service interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// Generate produces text or an image from the prompt, branching
	// internally on the model's resolved kind.
	Generate(ctx context.Context, req GenerateRequest) (*Result, error)

	// ResolveKind reports the output kind of a model, scoped to this
	// provider's registry entries.
	ResolveKind(model string) (registry.Kind, error)
}

// ImageEditor is the optional multi-image edit capability. Only
// providers whose API supports it implement this interface.
type ImageEditor interface {
	// EditImage applies the prompt to the input images, preserving
	// their order, and returns the single edited image.
	EditImage(ctx context.Context, prompt, model string, images []ImageFile) (*Result, error)
}

// ProviderError wraps any failure from an upstream provider call with
// enough context to diagnose which provider and model were involved.
type ProviderError struct {
	Provider registry.Provider
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: model %s: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
